package models

import (
	"time"

	"github.com/google/uuid"
)

type DeedStatus string

const (
	DeedStatusDraft     DeedStatus = "draft"
	DeedStatusCompleted DeedStatus = "completed"
)

type Deed struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	DeedType         string     `json:"deed_type"`
	PropertyAddress  string     `json:"property_address"`
	APN              *string    `json:"apn,omitempty"`
	County           *string    `json:"county,omitempty"`
	LegalDescription *string    `json:"legal_description,omitempty"`
	OwnerType        *string    `json:"owner_type,omitempty"`
	SalesPrice       *float64   `json:"sales_price,omitempty"`
	GranteeName      *string    `json:"grantee_name,omitempty"`
	Vesting          *string    `json:"vesting,omitempty"`
	Status           DeedStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CreateDeedParams struct {
	DeedType         string
	PropertyAddress  string
	APN              *string
	County           *string
	LegalDescription *string
	OwnerType        *string
	SalesPrice       *float64
	GranteeName      *string
	Vesting          *string
}

type UpdateDeedParams struct {
	DeedType         *string
	PropertyAddress  *string
	APN              *string
	County           *string
	LegalDescription *string
	OwnerType        *string
	SalesPrice       *float64
	GranteeName      *string
	Vesting          *string
}
