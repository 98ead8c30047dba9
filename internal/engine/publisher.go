package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
)

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

// CommandPublisher emits bot start/stop commands on the engine command topic.
type CommandPublisher struct {
	pub  publisher
	logg *logger.Logger
}

// NewCommandPublisher wraps the Pub/Sub publisher handle.
func NewCommandPublisher(p *pubsub.Publisher, logg *logger.Logger) (*CommandPublisher, error) {
	if p == nil {
		return nil, fmt.Errorf("engine command publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CommandPublisher{
		pub:  newGCPPublisher(p),
		logg: logg,
	}, nil
}

// PublishCommand marshals and publishes the command, waiting for the server ack.
func (c *CommandPublisher) PublishCommand(ctx context.Context, cmd Command) error {
	if cmd.BotID == uuid.Nil {
		return fmt.Errorf("bot id is required")
	}
	if cmd.Action != CommandStart && cmd.Action != CommandStop {
		return fmt.Errorf("unsupported command action %q", cmd.Action)
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal engine command: %w", err)
	}

	result := c.pub.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"action": string(cmd.Action),
			"bot_id": cmd.BotID.String(),
		},
	})
	if result == nil {
		return errors.New("publish returned nil result")
	}
	msgID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish engine command: %w", err)
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"bot_id":     cmd.BotID.String(),
		"action":     string(cmd.Action),
		"message_id": msgID,
	})
	c.logg.Info(logCtx, "engine command published")
	return nil
}

func newGCPPublisher(p *pubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
