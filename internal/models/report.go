package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminReport is the aggregate snapshot served to admins.
type AdminReport struct {
	TotalUsers          int            `json:"total_users"`
	DeedsByStatus       map[string]int `json:"deeds_by_status"`
	SharesByStatus      map[string]int `json:"shares_by_status"`
	TotalPaymentMethods int            `json:"total_payment_methods"`
	RecentSignups       []Signup       `json:"recent_signups"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

type Signup struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}
