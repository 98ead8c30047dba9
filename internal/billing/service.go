package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
)

// Service defines the checkout and portal orchestration surface.
type Service interface {
	StartCheckout(ctx context.Context, userID uuid.UUID, priceID string) (string, error)
	StartPortal(ctx context.Context, userID uuid.UUID) (string, error)
	Plans(ctx context.Context) []PlanEntry
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type customerBinder interface {
	BindCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

type service struct {
	users        userRepository
	entitlements customerBinder
	stripe       StripeBillingClient
	catalog      *Catalog
	cfg          config.StripeConfig
}

// ServiceParams bundles the dependencies required to build a billing service.
type ServiceParams struct {
	UserRepo     userRepository
	Entitlements customerBinder
	StripeClient StripeBillingClient
	Catalog      *Catalog
	StripeConfig config.StripeConfig
}

// NewService constructs the checkout/portal issuer with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlements repository is required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("plan catalog is required")
	}
	return &service{
		users:        params.UserRepo,
		entitlements: params.Entitlements,
		stripe:       params.StripeClient,
		catalog:      params.Catalog,
		cfg:          params.StripeConfig,
	}, nil
}

// StartCheckout lazily creates the Stripe customer, binds it to the user, and
// returns the redirect URL of a subscription-mode Checkout Session.
func (s *service) StartCheckout(ctx context.Context, userID uuid.UUID, priceID string) (string, error) {
	priceID = strings.TrimSpace(priceID)
	if !s.catalog.HasPrice(priceID) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown price id")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

// StartPortal returns a Billing Portal redirect URL. Fails with a conflict
// when the user has never gone through checkout.
func (s *service) StartPortal(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user.StripeCustomerID == nil || strings.TrimSpace(*user.StripeCustomerID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "no billing customer")
	}

	session, err := s.stripe.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.PortalReturnURL),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create portal session")
	}
	return session.URL, nil
}

// Plans lists the configured price-id to plan catalog.
func (s *service) Plans(ctx context.Context) []PlanEntry {
	return s.catalog.Entries()
}

func (s *service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && strings.TrimSpace(*user.StripeCustomerID) != "" {
		return *user.StripeCustomerID, nil
	}

	created, err := s.stripe.CreateCustomer(ctx, &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(strings.TrimSpace(user.FirstName + " " + user.LastName)),
		Metadata: map[string]string{
			"user_id": user.ID.String(),
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}

	if err := s.entitlements.BindCustomerID(ctx, user.ID, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}
