package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// Credential stores an exchange API secret encrypted at rest. The plaintext
// secret exists only in memory on the write and reveal paths.
type Credential struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Exchange        enums.Exchange `gorm:"column:exchange;type:exchange;not null"`
	Label           string         `gorm:"column:label;not null"`
	APIKeyID        *string        `gorm:"column:api_key_id"`
	EncryptedSecret string         `gorm:"column:encrypted_secret;not null"`
	Scopes          pq.StringArray `gorm:"column:scopes;type:text[]"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
