package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/deedflowhq/deedflow/internal/models"
)

// UserServiceInterface defines the contract for user operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID uuid.UUID) error
}

// AuthServiceInterface defines the contract for authentication operations.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (token string, err error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// DeedServiceInterface defines the contract for deed operations used by handlers.
type DeedServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, params models.CreateDeedParams) (*models.Deed, error)
	GetByID(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Deed, error)
	Update(ctx context.Context, userID, deedID uuid.UUID, params models.UpdateDeedParams) (*models.Deed, error)
	Finalize(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error)
	Delete(ctx context.Context, userID, deedID uuid.UUID) error
}

// ShareServiceInterface defines the contract for the sharing/approval workflow.
type ShareServiceInterface interface {
	Create(ctx context.Context, owner *models.User, params CreateShareParams) (*models.SharedDeed, bool, error)
	Resolve(ctx context.Context, token string) (*models.SharedDeed, bool, error)
	Respond(ctx context.Context, token string, approved bool, comments *string) (*models.SharedDeed, error)
	Revoke(ctx context.Context, ownerID, shareID uuid.UUID) error
	Resend(ctx context.Context, owner *models.User, shareID uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID) ([]models.SharedDeed, error)
}

// PaymentServiceInterface defines the contract for payment-method operations.
type PaymentServiceInterface interface {
	Attach(ctx context.Context, user *models.User, paymentMethodID string, makeDefault bool) (*models.PaymentMethod, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	SetDefault(ctx context.Context, userID, methodID uuid.UUID) error
	Detach(ctx context.Context, userID, methodID uuid.UUID) error
}

// AdminServiceInterface defines the contract for the admin reporting surface.
type AdminServiceInterface interface {
	Report(ctx context.Context) (*models.AdminReport, error)
}
