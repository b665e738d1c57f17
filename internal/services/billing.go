package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/deedflowhq/deedflow/internal/models"
)

var (
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrBillingFailed         = errors.New("billing provider call failed")
)

// BillingCard is what the provider reports about an attached card.
type BillingCard struct {
	ProviderID string
	Brand      string
	LastFour   string
}

// BillingProvider is the billing-provider seam. Only the Stripe adapter
// below touches the SDK; everything else, including tests, works against
// this interface.
type BillingProvider interface {
	EnsureCustomer(ctx context.Context, email, name string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*BillingCard, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
}

type PaymentService struct {
	db      DB
	billing BillingProvider
}

func NewPaymentService(db DB, billing BillingProvider) *PaymentService {
	return &PaymentService{db: db, billing: billing}
}

const paymentMethodColumns = `id, user_id, stripe_payment_method_id, card_brand, last_four, is_default, created_at`

// Attach registers a provider payment method for the user. The first card a
// user attaches becomes the default.
func (s *PaymentService) Attach(ctx context.Context, user *models.User, paymentMethodID string, makeDefault bool) (*models.PaymentMethod, error) {
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	card, err := s.billing.AttachPaymentMethod(ctx, customerID, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBillingFailed, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin attach transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_methods WHERE user_id = $1`, user.ID,
	).Scan(&existing); err != nil {
		return nil, fmt.Errorf("counting payment methods: %w", err)
	}

	isDefault := makeDefault || existing == 0
	if isDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE payment_methods SET is_default = false WHERE user_id = $1`, user.ID,
		); err != nil {
			return nil, fmt.Errorf("clearing default payment method: %w", err)
		}
	}

	method := &models.PaymentMethod{}
	err = tx.QueryRow(ctx,
		`INSERT INTO payment_methods (user_id, stripe_payment_method_id, card_brand, last_four, is_default)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+paymentMethodColumns,
		user.ID, card.ProviderID, card.Brand, card.LastFour, isDefault,
	).Scan(paymentMethodScanDest(method)...)
	if err != nil {
		return nil, fmt.Errorf("inserting payment method: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit attach: %w", err)
	}
	committed = true

	return method, nil
}

func (s *PaymentService) List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+paymentMethodColumns+`
		 FROM payment_methods WHERE user_id = $1
		 ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing payment methods: %w", err)
	}
	defer rows.Close()

	var methods []models.PaymentMethod
	for rows.Next() {
		var method models.PaymentMethod
		if err := rows.Scan(paymentMethodScanDest(&method)...); err != nil {
			return nil, fmt.Errorf("scanning payment method: %w", err)
		}
		methods = append(methods, method)
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	return methods, nil
}

func (s *PaymentService) SetDefault(ctx context.Context, userID, methodID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set-default transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx,
		`UPDATE payment_methods SET is_default = false WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("clearing default payment method: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE payment_methods SET is_default = true WHERE id = $1 AND user_id = $2`,
		methodID, userID,
	)
	if err != nil {
		return fmt.Errorf("setting default payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentMethodNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set-default: %w", err)
	}
	committed = true
	return nil
}

// Detach removes the card at the provider first, then locally. If the
// default card was removed the newest remaining card takes over.
func (s *PaymentService) Detach(ctx context.Context, userID, methodID uuid.UUID) error {
	var providerID string
	var wasDefault bool
	err := s.db.QueryRow(ctx,
		`SELECT stripe_payment_method_id, is_default FROM payment_methods WHERE id = $1 AND user_id = $2`,
		methodID, userID,
	).Scan(&providerID, &wasDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPaymentMethodNotFound
	}
	if err != nil {
		return fmt.Errorf("loading payment method: %w", err)
	}

	if err := s.billing.DetachPaymentMethod(ctx, providerID); err != nil {
		return fmt.Errorf("%w: %v", ErrBillingFailed, err)
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, methodID, userID,
	); err != nil {
		return fmt.Errorf("deleting payment method: %w", err)
	}

	if wasDefault {
		if _, err := s.db.Exec(ctx,
			`UPDATE payment_methods SET is_default = true
			 WHERE id = (SELECT id FROM payment_methods WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1)`,
			userID,
		); err != nil {
			return fmt.Errorf("promoting default payment method: %w", err)
		}
	}

	return nil
}

func (s *PaymentService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	var customerID *string
	err := s.db.QueryRow(ctx,
		`SELECT stripe_customer_id FROM users WHERE id = $1`, user.ID,
	).Scan(&customerID)
	if err != nil {
		return "", fmt.Errorf("loading billing customer: %w", err)
	}
	if customerID != nil && *customerID != "" {
		return *customerID, nil
	}

	created, err := s.billing.EnsureCustomer(ctx, user.Email, user.FullName())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBillingFailed, err)
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE users SET stripe_customer_id = $1 WHERE id = $2`, created, user.ID,
	); err != nil {
		return "", fmt.Errorf("saving billing customer: %w", err)
	}
	return created, nil
}

func paymentMethodScanDest(method *models.PaymentMethod) []any {
	return []any{
		&method.ID,
		&method.UserID,
		&method.StripePaymentMethodID,
		&method.CardBrand,
		&method.LastFour,
		&method.IsDefault,
		&method.CreatedAt,
	}
}

// StripeBilling implements BillingProvider against the Stripe API.
type StripeBilling struct {
	api *client.API
}

func NewStripeBilling(secretKey string) *StripeBilling {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeBilling{api: api}
}

func (b *StripeBilling) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	customer, err := b.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}
	return customer.ID, nil
}

func (b *StripeBilling) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*BillingCard, error) {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	pm, err := b.api.PaymentMethods.Attach(paymentMethodID, params)
	if err != nil {
		return nil, fmt.Errorf("attaching stripe payment method: %w", err)
	}

	card := &BillingCard{ProviderID: pm.ID}
	if pm.Card != nil {
		card.Brand = string(pm.Card.Brand)
		card.LastFour = pm.Card.Last4
	}
	return card, nil
}

func (b *StripeBilling) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if _, err := b.api.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return fmt.Errorf("detaching stripe payment method: %w", err)
	}
	return nil
}

// StubBilling is an in-memory BillingProvider for local development, where
// no Stripe key is configured. It accepts everything.
type StubBilling struct{}

func NewStubBilling() *StubBilling {
	return &StubBilling{}
}

func (StubBilling) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	return "cus_stub_" + uuid.NewString(), nil
}

func (StubBilling) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*BillingCard, error) {
	return &BillingCard{
		ProviderID: paymentMethodID,
		Brand:      "visa",
		LastFour:   "4242",
	}, nil
}

func (StubBilling) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	return nil
}
