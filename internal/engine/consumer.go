package engine

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/pkg/db"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
)

type botStore interface {
	ApplyPerformance(ctx context.Context, snapshot PerformanceSnapshot) error
}

// Consumer applies engine performance snapshots to bot rows.
type Consumer struct {
	bots         botStore
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds the engine event consumer.
func NewConsumer(bots botStore, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if bots == nil {
		return nil, fmt.Errorf("bot store required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("engine subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		bots:         bots,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Data, msg.ID)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// process classifies each message: malformed payloads are acked so they do
// not poison the subscription, transient store failures are nacked for retry.
func (c *Consumer) process(ctx context.Context, data []byte, messageID string) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	var snapshot PerformanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logg.Error(logCtx, "failed to decode performance snapshot", err)
		return processResult{ack: true}
	}
	if snapshot.BotID == uuid.Nil {
		c.logg.Error(logCtx, "performance snapshot missing bot id", nil)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithBotID(logCtx, snapshot.BotID.String())

	if err := c.bots.ApplyPerformance(ctx, snapshot); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			switch appErr.Code() {
			case pkgerrors.CodeNotFound:
				c.logg.Warn(logCtx, "snapshot references unknown bot, acking")
				return processResult{ack: true}
			case pkgerrors.CodeValidation:
				c.logg.Error(logCtx, "rejecting invalid snapshot", err)
				return processResult{ack: true}
			}
		}
		if db.IsConstraintViolation(err) {
			c.logg.Error(logCtx, "snapshot violates a storage constraint, acking", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to apply performance snapshot", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "performance snapshot applied")
	return processResult{ack: true}
}
