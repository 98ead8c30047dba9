package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// User represents the canonical identity entity. The subscription pair
// (status, plan) is the entitlement projection consulted by quota checks;
// it is mutated only by the webhook reconciler and the checkout flow.
type User struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email              string                   `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash       string                   `gorm:"column:password_hash;not null"`
	FirstName          string                   `gorm:"column:first_name;not null"`
	LastName           string                   `gorm:"column:last_name;not null"`
	IsActive           bool                     `gorm:"column:is_active;not null;default:true"`
	LastLoginAt        *time.Time               `gorm:"column:last_login_at"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;type:subscription_status;not null;default:'inactive'"`
	SubscriptionPlan   enums.SubscriptionPlan   `gorm:"column:subscription_plan;type:subscription_plan;not null;default:'free'"`
	StripeCustomerID   *string                  `gorm:"column:stripe_customer_id;uniqueIndex"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
