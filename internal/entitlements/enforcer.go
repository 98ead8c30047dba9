package entitlements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/metrics"
)

type entitlementReader interface {
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*Entitlement, error)
}

type botCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Enforcer answers whether a user may create another bot. The subscription
// check comes first; the plan limit only applies once the status entitles.
type Enforcer struct {
	entitlements entitlementReader
	bots         botCounter
	quota        config.QuotaConfig
	metrics      *metrics.BillingMetrics
}

// EnforcerParams bundles the dependencies required to build an enforcer.
type EnforcerParams struct {
	Entitlements entitlementReader
	Bots         botCounter
	Quota        config.QuotaConfig
	Metrics      *metrics.BillingMetrics
}

// NewEnforcer constructs a quota enforcer with the provided dependencies.
func NewEnforcer(params EnforcerParams) (*Enforcer, error) {
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlement reader is required")
	}
	if params.Bots == nil {
		return nil, fmt.Errorf("bot counter is required")
	}
	return &Enforcer{
		entitlements: params.Entitlements,
		bots:         params.Bots,
		quota:        params.Quota,
		metrics:      params.Metrics,
	}, nil
}

// CanCreateBot returns nil when the user may create another bot. The count
// check and the subsequent insert are not transactional; concurrent creates
// can briefly exceed the limit.
func (e *Enforcer) CanCreateBot(ctx context.Context, userID uuid.UUID) error {
	ent, err := e.entitlements.GetEntitlement(ctx, userID)
	if err != nil {
		return err
	}

	if !ent.Status.Entitles() {
		e.metrics.IncQuotaDenial(string(ent.Plan))
		return pkgerrors.New(pkgerrors.CodeForbidden, "subscription required")
	}

	limit := e.limitFor(ent.Plan)
	if limit <= 0 {
		return nil
	}

	count, err := e.bots.CountByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count bots")
	}
	if count >= int64(limit) {
		e.metrics.IncQuotaDenial(string(ent.Plan))
		return pkgerrors.New(pkgerrors.CodeForbidden, "plan limit reached")
	}
	return nil
}

// limitFor resolves the per-plan cap; zero or negative means unlimited.
func (e *Enforcer) limitFor(plan enums.SubscriptionPlan) int {
	switch plan {
	case enums.SubscriptionPlanBasic:
		return e.quota.BasicBotLimit
	case enums.SubscriptionPlanPremium:
		return e.quota.PremiumBotLimit
	default:
		return 0
	}
}
