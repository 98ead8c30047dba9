package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/tradeforgehq/tradeforge-backend/pkg/config"
	"github.com/tradeforgehq/tradeforge-backend/pkg/db/models"
	"github.com/tradeforgehq/tradeforge-backend/pkg/enums"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
)

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, s.err
}

type stubBinder struct {
	boundUser     uuid.UUID
	boundCustomer string
	err           error
	calls         int
}

func (s *stubBinder) BindCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	s.calls++
	s.boundUser = userID
	s.boundCustomer = customerID
	return s.err
}

type stubStripeClient struct {
	customer        *stripe.Customer
	customerErr     error
	checkoutSession *stripe.CheckoutSession
	checkoutErr     error
	portalSession   *stripe.BillingPortalSession
	portalErr       error

	checkoutParams *stripe.CheckoutSessionParams
	portalParams   *stripe.BillingPortalSessionParams
	customerCalls  int
}

func (s *stubStripeClient) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	s.customerCalls++
	return s.customer, s.customerErr
}

func (s *stubStripeClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.checkoutParams = params
	return s.checkoutSession, s.checkoutErr
}

func (s *stubStripeClient) CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	s.portalParams = params
	return s.portalSession, s.portalErr
}

func testStripeConfig() config.StripeConfig {
	return config.StripeConfig{
		BasicPriceID:    "price_basic",
		PremiumPriceID:  "price_premium",
		SuccessURL:      "https://app.test/billing/success",
		CancelURL:       "https://app.test/billing/cancel",
		PortalReturnURL: "https://app.test/settings",
	}
}

func newTestService(t *testing.T, users *stubUserRepo, binder *stubBinder, client *stubStripeClient) Service {
	t.Helper()
	cfg := testStripeConfig()
	svc, err := NewService(ServiceParams{
		UserRepo:     users,
		Entitlements: binder,
		StripeClient: client,
		Catalog:      NewCatalog(cfg),
		StripeConfig: cfg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestStartCheckoutCreatesAndBindsCustomer(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", LastName: "Trader"}
	binder := &stubBinder{}
	client := &stubStripeClient{
		customer:        &stripe.Customer{ID: "cus_new"},
		checkoutSession: &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_123"},
	}
	svc := newTestService(t, &stubUserRepo{user: user}, binder, client)

	url, err := svc.StartCheckout(context.Background(), user.ID, "price_basic")
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if url != "https://checkout.stripe.com/c/pay/cs_123" {
		t.Fatalf("unexpected redirect url %q", url)
	}
	if binder.calls != 1 || binder.boundCustomer != "cus_new" || binder.boundUser != user.ID {
		t.Fatalf("expected customer bound once, got %+v", binder)
	}
	if client.checkoutParams == nil || *client.checkoutParams.Mode != string(stripe.CheckoutSessionModeSubscription) {
		t.Fatal("expected subscription-mode checkout session")
	}
	if *client.checkoutParams.LineItems[0].Price != "price_basic" {
		t.Fatalf("unexpected price %q", *client.checkoutParams.LineItems[0].Price)
	}
}

func TestStartCheckoutReusesBoundCustomer(t *testing.T) {
	customerID := "cus_existing"
	user := &models.User{ID: uuid.New(), Email: "ada@example.com", StripeCustomerID: &customerID}
	binder := &stubBinder{}
	client := &stubStripeClient{
		checkoutSession: &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_456"},
	}
	svc := newTestService(t, &stubUserRepo{user: user}, binder, client)

	if _, err := svc.StartCheckout(context.Background(), user.ID, "price_premium"); err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if client.customerCalls != 0 {
		t.Fatal("expected no customer creation for bound user")
	}
	if binder.calls != 0 {
		t.Fatal("expected no rebind for bound user")
	}
	if *client.checkoutParams.Customer != customerID {
		t.Fatalf("expected session for existing customer, got %q", *client.checkoutParams.Customer)
	}
}

func TestStartCheckoutRejectsUnknownPrice(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{user: &models.User{ID: uuid.New()}}, &stubBinder{}, &stubStripeClient{})

	_, err := svc.StartCheckout(context.Background(), uuid.New(), "price_bogus")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartCheckoutProviderFailure(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	client := &stubStripeClient{customerErr: errors.New("stripe down")}
	svc := newTestService(t, &stubUserRepo{user: user}, &stubBinder{}, client)

	_, err := svc.StartCheckout(context.Background(), user.ID, "price_basic")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestStartPortalRequiresCustomer(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{user: &models.User{ID: uuid.New()}}, &stubBinder{}, &stubStripeClient{})

	_, err := svc.StartPortal(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for unbound user, got %v", err)
	}
}

func TestStartPortalReturnsURL(t *testing.T) {
	customerID := "cus_existing"
	user := &models.User{ID: uuid.New(), StripeCustomerID: &customerID}
	client := &stubStripeClient{
		portalSession: &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session_123"},
	}
	svc := newTestService(t, &stubUserRepo{user: user}, &stubBinder{}, client)

	url, err := svc.StartPortal(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("start portal: %v", err)
	}
	if url != "https://billing.stripe.com/p/session_123" {
		t.Fatalf("unexpected url %q", url)
	}
	if *client.portalParams.Customer != customerID {
		t.Fatalf("unexpected customer %q", *client.portalParams.Customer)
	}
}

func TestPlansListsCatalog(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{}, &stubBinder{}, &stubStripeClient{})

	plans := svc.Plans(context.Background())
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].Plan != enums.SubscriptionPlanBasic || plans[0].PriceID != "price_basic" {
		t.Fatalf("unexpected first entry %+v", plans[0])
	}
	if plans[1].Plan != enums.SubscriptionPlanPremium || plans[1].PriceID != "price_premium" {
		t.Fatalf("unexpected second entry %+v", plans[1])
	}
}
