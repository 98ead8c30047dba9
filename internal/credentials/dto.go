package credentials

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
)

// CredentialDTO is the transport shape. The secret never appears here; the
// reveal endpoint returns it separately and only on demand.
type CredentialDTO struct {
	ID        uuid.UUID      `json:"id"`
	Exchange  enums.Exchange `json:"exchange"`
	Label     string         `json:"label"`
	APIKeyID  *string        `json:"api_key_id,omitempty"`
	Scopes    []string       `json:"scopes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateCredentialRequest is the payload accepted by the create endpoint.
type CreateCredentialRequest struct {
	Exchange string   `json:"exchange" validate:"required"`
	Label    string   `json:"label" validate:"required,max=120"`
	APIKeyID *string  `json:"api_key_id,omitempty"`
	Secret   string   `json:"secret" validate:"required"`
	Scopes   []string `json:"scopes,omitempty"`
}

// RevealResponse carries the decrypted secret back to its owner.
type RevealResponse struct {
	ID     uuid.UUID `json:"id"`
	Secret string    `json:"secret"`
}

func FromModel(c *models.Credential) *CredentialDTO {
	if c == nil {
		return nil
	}
	scopes := make([]string, 0, len(c.Scopes))
	scopes = append(scopes, c.Scopes...)

	return &CredentialDTO{
		ID:        c.ID,
		Exchange:  c.Exchange,
		Label:     c.Label,
		APIKeyID:  c.APIKeyID,
		Scopes:    scopes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromModels(list []models.Credential) []CredentialDTO {
	out := make([]CredentialDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
