package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Plan   enums.SubscriptionPlan
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. The plan
// claim is advisory only; quota decisions always re-read the entitlement.
type AccessTokenClaims struct {
	UserID uuid.UUID              `json:"user_id"`
	Plan   enums.SubscriptionPlan `json:"plan,omitempty"`
	jwt.RegisteredClaims
}
