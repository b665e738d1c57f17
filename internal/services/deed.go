package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deedflowhq/deedflow/internal/models"
)

var (
	ErrDeedNotFound  = errors.New("deed not found")
	ErrDeedCompleted = errors.New("deed already completed")
)

type DeedService struct {
	db DB
}

func NewDeedService(db DB) *DeedService {
	return &DeedService{db: db}
}

const deedColumns = `id, user_id, deed_type, property_address, apn, county, legal_description,
	        owner_type, sales_price, grantee_name, vesting, status, created_at, updated_at`

func (s *DeedService) Create(ctx context.Context, userID uuid.UUID, params models.CreateDeedParams) (*models.Deed, error) {
	deed := &models.Deed{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO deeds (user_id, deed_type, property_address, apn, county, legal_description,
		        owner_type, sales_price, grantee_name, vesting, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'draft')
		 RETURNING `+deedColumns,
		userID, params.DeedType, params.PropertyAddress, params.APN, params.County,
		params.LegalDescription, params.OwnerType, params.SalesPrice, params.GranteeName, params.Vesting,
	).Scan(deedScanDest(deed)...)
	if err != nil {
		return nil, fmt.Errorf("creating deed: %w", err)
	}
	return deed, nil
}

func (s *DeedService) GetByID(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error) {
	deed := &models.Deed{}
	err := s.db.QueryRow(ctx,
		`SELECT `+deedColumns+` FROM deeds WHERE id = $1 AND user_id = $2`,
		deedID, userID,
	).Scan(deedScanDest(deed)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting deed: %w", err)
	}
	return deed, nil
}

func (s *DeedService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Deed, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+deedColumns+` FROM deeds WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deeds: %w", err)
	}
	defer rows.Close()

	var deeds []models.Deed
	for rows.Next() {
		var deed models.Deed
		if err := rows.Scan(deedScanDest(&deed)...); err != nil {
			return nil, fmt.Errorf("scanning deed: %w", err)
		}
		deeds = append(deeds, deed)
	}
	if deeds == nil {
		deeds = []models.Deed{}
	}
	return deeds, nil
}

// Update edits a draft deed. Completed deeds are immutable; they may already
// be out for review or recorded.
func (s *DeedService) Update(ctx context.Context, userID, deedID uuid.UUID, params models.UpdateDeedParams) (*models.Deed, error) {
	deed := &models.Deed{}
	err := s.db.QueryRow(ctx,
		`UPDATE deeds
		 SET deed_type = COALESCE($1, deed_type),
		     property_address = COALESCE($2, property_address),
		     apn = COALESCE($3, apn),
		     county = COALESCE($4, county),
		     legal_description = COALESCE($5, legal_description),
		     owner_type = COALESCE($6, owner_type),
		     sales_price = COALESCE($7, sales_price),
		     grantee_name = COALESCE($8, grantee_name),
		     vesting = COALESCE($9, vesting),
		     updated_at = NOW()
		 WHERE id = $10 AND user_id = $11 AND status = 'draft'
		 RETURNING `+deedColumns,
		params.DeedType, params.PropertyAddress, params.APN, params.County,
		params.LegalDescription, params.OwnerType, params.SalesPrice,
		params.GranteeName, params.Vesting, deedID, userID,
	).Scan(deedScanDest(deed)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyDraftConflict(ctx, userID, deedID)
	}
	if err != nil {
		return nil, fmt.Errorf("updating deed: %w", err)
	}
	return deed, nil
}

// Finalize moves a draft to completed. Only completed deeds are shareable.
func (s *DeedService) Finalize(ctx context.Context, userID, deedID uuid.UUID) (*models.Deed, error) {
	deed := &models.Deed{}
	err := s.db.QueryRow(ctx,
		`UPDATE deeds SET status = 'completed', updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status = 'draft'
		 RETURNING `+deedColumns,
		deedID, userID,
	).Scan(deedScanDest(deed)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.classifyDraftConflict(ctx, userID, deedID)
	}
	if err != nil {
		return nil, fmt.Errorf("finalizing deed: %w", err)
	}
	return deed, nil
}

// Delete removes a draft. Completed deeds are retained.
func (s *DeedService) Delete(ctx context.Context, userID, deedID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM deeds WHERE id = $1 AND user_id = $2 AND status = 'draft'`,
		deedID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting deed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyDraftConflict(ctx, userID, deedID)
	}
	return nil
}

func (s *DeedService) classifyDraftConflict(ctx context.Context, userID, deedID uuid.UUID) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM deeds WHERE id = $1 AND user_id = $2)`,
		deedID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking deed: %w", err)
	}
	if !exists {
		return ErrDeedNotFound
	}
	return ErrDeedCompleted
}

func deedScanDest(deed *models.Deed) []any {
	return []any{
		&deed.ID,
		&deed.UserID,
		&deed.DeedType,
		&deed.PropertyAddress,
		&deed.APN,
		&deed.County,
		&deed.LegalDescription,
		&deed.OwnerType,
		&deed.SalesPrice,
		&deed.GranteeName,
		&deed.Vesting,
		&deed.Status,
		&deed.CreatedAt,
		&deed.UpdatedAt,
	}
}
