package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareStatus is the lifecycle state of a shared deed. Transitions are
// one-way: sent -> viewed -> approved|rejected, with revoked reachable from
// sent or viewed. Terminal states never change again.
type ShareStatus string

const (
	ShareStatusSent     ShareStatus = "sent"
	ShareStatusViewed   ShareStatus = "viewed"
	ShareStatusApproved ShareStatus = "approved"
	ShareStatusRejected ShareStatus = "rejected"
	ShareStatusRevoked  ShareStatus = "revoked"
)

// IsTerminal reports whether no further transition is permitted.
func (s ShareStatus) IsTerminal() bool {
	switch s {
	case ShareStatusApproved, ShareStatusRejected, ShareStatusRevoked:
		return true
	}
	return false
}

// SharedDeed is one instance of a deed routed to one external recipient for
// review. Records are never deleted; revocation and expiry leave them in
// place for audit. The approval token itself never appears in owner-facing
// JSON.
type SharedDeed struct {
	ID             uuid.UUID   `json:"id"`
	DeedID         uuid.UUID   `json:"deed_id"`
	OwnerUserID    uuid.UUID   `json:"owner_user_id"`
	RecipientName  string      `json:"recipient_name"`
	RecipientEmail string      `json:"recipient_email"`
	RecipientRole  string      `json:"recipient_role"`
	Message        *string     `json:"message,omitempty"`
	Status         ShareStatus `json:"status"`
	Comments       *string     `json:"comments,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
	RespondedAt    *time.Time  `json:"responded_at,omitempty"`
}
