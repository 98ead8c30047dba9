package entitlements

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/pkg/db"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
)

// Entitlement is the (status, plan) pair projected from the users table.
// It is always read and written as a whole.
type Entitlement struct {
	Status enums.SubscriptionStatus
	Plan   enums.SubscriptionPlan
}

// Repository exposes entitlement reads and the reconciler's write paths.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an entitlements repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetEntitlement loads the current entitlement pair for the user.
func (r *Repository) GetEntitlement(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("subscription_status", "subscription_plan").
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load entitlement")
	}
	return &Entitlement{
		Status: user.SubscriptionStatus,
		Plan:   user.SubscriptionPlan,
	}, nil
}

// SetEntitlementByCustomerID overwrites the whole entitlement pair on the user
// bound to the Stripe customer. NotFound when no user carries the customer id.
func (r *Repository) SetEntitlementByCustomerID(ctx context.Context, customerID string, ent Entitlement) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("stripe_customer_id = ?", customerID).
		Updates(map[string]any{
			"subscription_status": ent.Status,
			"subscription_plan":   ent.Plan,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update entitlement")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no user bound to customer")
	}
	return nil
}

// SetStatusByCustomerID moves only the status, leaving the plan untouched.
// Used for invoice failures, which say nothing about the priced plan.
func (r *Repository) SetStatusByCustomerID(ctx context.Context, customerID string, status enums.SubscriptionStatus) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("stripe_customer_id = ?", customerID).
		UpdateColumn("subscription_status", status)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update subscription status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no user bound to customer")
	}
	return nil
}

// BindCustomerID attaches the Stripe customer to the user. Rebinding to the
// same id is a no-op; a different existing id is a conflict. The partial
// unique index on stripe_customer_id backs cross-user uniqueness.
func (r *Repository) BindCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	var user models.User
	err := r.db.WithContext(ctx).
		Select("id", "stripe_customer_id").
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if user.StripeCustomerID != nil {
		if *user.StripeCustomerID == customerID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "user already bound to a customer")
	}

	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND stripe_customer_id IS NULL", userID).
		UpdateColumn("stripe_customer_id", customerID)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "customer already bound to another user")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "bind customer")
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent bind; re-read to classify.
		var current models.User
		if err := r.db.WithContext(ctx).
			Select("stripe_customer_id").
			First(&current, "id = ?", userID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-read user")
		}
		if current.StripeCustomerID != nil && *current.StripeCustomerID == customerID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "user already bound to a customer")
	}
	return nil
}
