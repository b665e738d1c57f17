package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/deedflowhq/deedflow/internal/models"
	"github.com/deedflowhq/deedflow/internal/services"
)

type mockUserService struct {
	CreateFunc         func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	TouchLastLoginFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserService) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(ctx, userID)
	}
	return nil
}

type mockAuthService struct {
	HashPasswordFunc    func(password string) (string, error)
	VerifyPasswordFunc  func(hash, password string) bool
	CreateSessionFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return true
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "session-token", nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, services.ErrSessionNotFound
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockDeedService struct {
	CreateFunc     func(ctx context.Context, userID uuid.UUID, params models.CreateDeedParams) (*models.Deed, error)
	GetByIDFunc    func(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error)
	ListByUserFunc func(ctx context.Context, userID uuid.UUID) ([]models.Deed, error)
	UpdateFunc     func(ctx context.Context, userID, deedID uuid.UUID, params models.UpdateDeedParams) (*models.Deed, error)
	FinalizeFunc   func(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error)
	DeleteFunc     func(ctx context.Context, userID, deedID uuid.UUID) error
}

func (m *mockDeedService) Create(ctx context.Context, userID uuid.UUID, params models.CreateDeedParams) (*models.Deed, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, params)
	}
	return nil, nil
}

func (m *mockDeedService) GetByID(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, deedID)
	}
	return nil, nil
}

func (m *mockDeedService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Deed, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []models.Deed{}, nil
}

func (m *mockDeedService) Update(ctx context.Context, userID, deedID uuid.UUID, params models.UpdateDeedParams) (*models.Deed, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, deedID, params)
	}
	return nil, nil
}

func (m *mockDeedService) Finalize(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error) {
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, userID, deedID)
	}
	return nil, nil
}

func (m *mockDeedService) Delete(ctx context.Context, userID, deedID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, deedID)
	}
	return nil
}

type mockShareService struct {
	CreateFunc  func(ctx context.Context, owner *models.User, params services.CreateShareParams) (*models.SharedDeed, bool, error)
	ResolveFunc func(ctx context.Context, token string) (*models.SharedDeed, bool, error)
	RespondFunc func(ctx context.Context, token string, approved bool, comments *string) (*models.SharedDeed, error)
	RevokeFunc  func(ctx context.Context, ownerID, shareID uuid.UUID) error
	ResendFunc  func(ctx context.Context, owner *models.User, shareID uuid.UUID) error
	ListFunc    func(ctx context.Context, ownerID uuid.UUID) ([]models.SharedDeed, error)
}

func (m *mockShareService) Create(ctx context.Context, owner *models.User, params services.CreateShareParams) (*models.SharedDeed, bool, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, owner, params)
	}
	return nil, false, nil
}

func (m *mockShareService) Resolve(ctx context.Context, token string) (*models.SharedDeed, bool, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, token)
	}
	return nil, false, nil
}

func (m *mockShareService) Respond(ctx context.Context, token string, approved bool, comments *string) (*models.SharedDeed, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, token, approved, comments)
	}
	return nil, nil
}

func (m *mockShareService) Revoke(ctx context.Context, ownerID, shareID uuid.UUID) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, ownerID, shareID)
	}
	return nil
}

func (m *mockShareService) Resend(ctx context.Context, owner *models.User, shareID uuid.UUID) error {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, owner, shareID)
	}
	return nil
}

func (m *mockShareService) List(ctx context.Context, ownerID uuid.UUID) ([]models.SharedDeed, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID)
	}
	return []models.SharedDeed{}, nil
}

type mockPaymentService struct {
	AttachFunc     func(ctx context.Context, user *models.User, paymentMethodID string, makeDefault bool) (*models.PaymentMethod, error)
	ListFunc       func(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	SetDefaultFunc func(ctx context.Context, userID, methodID uuid.UUID) error
	DetachFunc     func(ctx context.Context, userID, methodID uuid.UUID) error
}

func (m *mockPaymentService) Attach(ctx context.Context, user *models.User, paymentMethodID string, makeDefault bool) (*models.PaymentMethod, error) {
	if m.AttachFunc != nil {
		return m.AttachFunc(ctx, user, paymentMethodID, makeDefault)
	}
	return nil, nil
}

func (m *mockPaymentService) List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return []models.PaymentMethod{}, nil
}

func (m *mockPaymentService) SetDefault(ctx context.Context, userID, methodID uuid.UUID) error {
	if m.SetDefaultFunc != nil {
		return m.SetDefaultFunc(ctx, userID, methodID)
	}
	return nil
}

func (m *mockPaymentService) Detach(ctx context.Context, userID, methodID uuid.UUID) error {
	if m.DetachFunc != nil {
		return m.DetachFunc(ctx, userID, methodID)
	}
	return nil
}

type mockAdminService struct {
	ReportFunc func(ctx context.Context) (*models.AdminReport, error)
}

func (m *mockAdminService) Report(ctx context.Context) (*models.AdminReport, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx)
	}
	return &models.AdminReport{}, nil
}
