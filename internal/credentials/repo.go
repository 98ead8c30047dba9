package credentials

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
)

// Repository exposes credential persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a credentials repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the credential row. The secret must already be encrypted.
func (r *Repository) Create(ctx context.Context, credential *models.Credential) error {
	if credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(credential).Error
}

// FindByID loads a credential by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	var credential models.Credential
	if err := r.db.WithContext(ctx).First(&credential, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &credential, nil
}

// ListByUser returns the user's credentials, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Credential, error) {
	var list []models.Credential
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Delete removes the credential row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Credential{}, "id = ?", id).Error
}
