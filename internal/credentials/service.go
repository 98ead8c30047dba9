package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
)

// Service defines the behavior needed by the credentials controller.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateCredentialRequest) (*CredentialDTO, error)
	List(ctx context.Context, userID uuid.UUID) ([]CredentialDTO, error)
	Reveal(ctx context.Context, userID, credentialID uuid.UUID) (*RevealResponse, error)
	Delete(ctx context.Context, userID, credentialID uuid.UUID) error
}

type repository interface {
	Create(ctx context.Context, credential *models.Credential) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Credential, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type secretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type service struct {
	repo   repository
	cipher secretCipher
}

// ServiceParams bundles the dependencies required to build a credentials service.
type ServiceParams struct {
	Repo   repository
	Cipher secretCipher
}

// NewService constructs the credentials service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("credentials repository is required")
	}
	if params.Cipher == nil {
		return nil, fmt.Errorf("secret cipher is required")
	}
	return &service{
		repo:   params.Repo,
		cipher: params.Cipher,
	}, nil
}

// Create validates the payload, encrypts the secret, and persists the row.
// The plaintext secret lives only on this call's stack.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateCredentialRequest) (*CredentialDTO, error) {
	exchange, err := enums.ParseExchange(req.Exchange)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported exchange")
	}
	if strings.TrimSpace(req.Secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "secret is required")
	}

	encrypted, err := s.cipher.Encrypt(req.Secret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encrypt secret")
	}

	credential := &models.Credential{
		UserID:          userID,
		Exchange:        exchange,
		Label:           strings.TrimSpace(req.Label),
		APIKeyID:        req.APIKeyID,
		EncryptedSecret: encrypted,
		Scopes:          pq.StringArray(req.Scopes),
	}
	if err := s.repo.Create(ctx, credential); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create credential")
	}
	return FromModel(credential), nil
}

// List returns the caller's credentials without secrets.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]CredentialDTO, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list credentials")
	}
	return FromModels(list), nil
}

// Reveal decrypts the secret for its owner. Decryption happens only here.
func (s *service) Reveal(ctx context.Context, userID, credentialID uuid.UUID) (*RevealResponse, error) {
	credential, err := s.findOwned(ctx, userID, credentialID)
	if err != nil {
		return nil, err
	}

	secret, err := s.cipher.Decrypt(credential.EncryptedSecret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrypt secret")
	}
	return &RevealResponse{ID: credential.ID, Secret: secret}, nil
}

// Delete removes the credential immediately given ownership.
func (s *service) Delete(ctx context.Context, userID, credentialID uuid.UUID) error {
	credential, err := s.findOwned(ctx, userID, credentialID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, credential.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete credential")
	}
	return nil
}

// findOwned hides other users' rows behind NotFound.
func (s *service) findOwned(ctx context.Context, userID, credentialID uuid.UUID) (*models.Credential, error) {
	credential, err := s.repo.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credential not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load credential")
	}
	if credential.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credential not found")
	}
	return credential, nil
}
