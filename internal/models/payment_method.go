package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	StripePaymentMethodID string    `json:"stripe_payment_method_id"`
	CardBrand             string    `json:"card_brand"`
	LastFour              string    `json:"last_four"`
	IsDefault             bool      `json:"is_default"`
	CreatedAt             time.Time `json:"created_at"`
}
