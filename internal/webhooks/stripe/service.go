package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/tradeforgehq/tradeforge-backend/internal/billing"
	"github.com/tradeforgehq/tradeforge-backend/internal/entitlements"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
	"github.com/tradeforgehq/tradeforge-backend/pkg/metrics"
)

type entitlementWriter interface {
	SetEntitlementByCustomerID(ctx context.Context, customerID string, ent entitlements.Entitlement) error
	SetStatusByCustomerID(ctx context.Context, customerID string, status enums.SubscriptionStatus) error
}

// ServiceParams bundles the dependencies required to build the reconciler.
type ServiceParams struct {
	Entitlements entitlementWriter
	Catalog      *billing.Catalog
	Logger       *logger.Logger
	Metrics      *metrics.BillingMetrics
}

// Service projects Stripe subscription events onto the entitlement pair.
// Every handler is a pure function of the event payload, so replays land on
// the same state; out-of-order deliveries resolve last-write-wins.
type Service struct {
	entitlements entitlementWriter
	catalog      *billing.Catalog
	logg         *logger.Logger
	metrics      *metrics.BillingMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Entitlements == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlements repo required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		entitlements: params.Entitlements,
		catalog:      params.Catalog,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	start := time.Now()
	defer func() {
		s.metrics.ObserveWebhookDuration(string(event.Type), time.Since(start))
	}()

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		sub, err := decodeSubscription(event)
		if err != nil {
			return err
		}
		ent := entitlements.Entitlement{
			Status: mapProviderStatus(sub.Status),
			Plan:   s.catalog.PlanForPrice(determinePriceID(sub)),
		}
		return s.applyEntitlement(ctx, event, customerIDFromSubscription(sub), ent)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		sub, err := decodeSubscription(event)
		if err != nil {
			return err
		}
		ent := entitlements.Entitlement{
			Status: enums.SubscriptionStatusInactive,
			Plan:   enums.SubscriptionPlanFree,
		}
		return s.applyEntitlement(ctx, event, customerIDFromSubscription(sub), ent)

	case stripe.EventTypeInvoicePaymentFailed:
		customerID := event.GetObjectValue("customer")
		if strings.TrimSpace(customerID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer id missing on invoice event")
		}
		err := s.entitlements.SetStatusByCustomerID(ctx, customerID, enums.SubscriptionStatusPastDue)
		return s.classifyWriteError(ctx, event, customerID, err)

	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)), "ignoring unhandled stripe event")
		s.metrics.IncWebhookEvent(string(event.Type), "ignored")
		return nil
	}
}

func (s *Service) applyEntitlement(ctx context.Context, event *stripe.Event, customerID string, ent entitlements.Entitlement) error {
	if strings.TrimSpace(customerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id missing on subscription event")
	}
	err := s.entitlements.SetEntitlementByCustomerID(ctx, customerID, ent)
	return s.classifyWriteError(ctx, event, customerID, err)
}

// classifyWriteError downgrades unmapped-customer misses to a logged warning
// so the provider never retries them; everything else bubbles up.
func (s *Service) classifyWriteError(ctx context.Context, event *stripe.Event, customerID string, err error) error {
	if err == nil {
		s.metrics.IncWebhookEvent(string(event.Type), "applied")
		return nil
	}
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
		ctx = s.logg.WithCustomerID(ctx, customerID)
		ctx = s.logg.WithField(ctx, "event_type", string(event.Type))
		s.logg.Warn(ctx, "stripe event references unmapped customer, acking without mutation")
		s.metrics.IncWebhookEvent(string(event.Type), "unmapped")
		return nil
	}
	s.metrics.IncWebhookEvent(string(event.Type), "failed")
	return err
}

func decodeSubscription(event *stripe.Event) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
	}
	return &sub, nil
}

func customerIDFromSubscription(sub *stripe.Subscription) string {
	if sub == nil || sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

// mapProviderStatus folds trialing into active; any other status is carried
// raw when recognized, Unknown otherwise.
func mapProviderStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusActive
	default:
		parsed, err := enums.ParseSubscriptionStatus(string(status))
		if err != nil {
			return enums.SubscriptionStatusUnknown
		}
		return parsed
	}
}

func determinePriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return ""
}
