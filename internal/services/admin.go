package services

import (
	"context"
	"fmt"
	"time"

	"github.com/deedflowhq/deedflow/internal/models"
)

const recentSignupLimit = 10

type AdminService struct {
	db DB
}

func NewAdminService(db DB) *AdminService {
	return &AdminService{db: db}
}

// Report aggregates platform counts for the admin dashboard. Callers are
// responsible for the admin-role check; this service only reads.
func (s *AdminService) Report(ctx context.Context) (*models.AdminReport, error) {
	report := &models.AdminReport{
		DeedsByStatus:  map[string]int{},
		SharesByStatus: map[string]int{},
		GeneratedAt:    time.Now().UTC(),
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&report.TotalUsers); err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM payment_methods`).Scan(&report.TotalPaymentMethods); err != nil {
		return nil, fmt.Errorf("counting payment methods: %w", err)
	}

	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM deeds GROUP BY status`, report.DeedsByStatus); err != nil {
		return nil, fmt.Errorf("counting deeds: %w", err)
	}
	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM shared_deeds GROUP BY status`, report.SharesByStatus); err != nil {
		return nil, fmt.Errorf("counting shares: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, email, first_name, last_name, created_at
		 FROM users ORDER BY created_at DESC LIMIT $1`,
		recentSignupLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent signups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var signup models.Signup
		if err := rows.Scan(&signup.ID, &signup.Email, &signup.FirstName, &signup.LastName, &signup.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning signup: %w", err)
		}
		report.RecentSignups = append(report.RecentSignups, signup)
	}
	if report.RecentSignups == nil {
		report.RecentSignups = []models.Signup{}
	}

	return report, nil
}

func (s *AdminService) countByStatus(ctx context.Context, query string, out map[string]int) error {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		out[status] = count
	}
	return rows.Err()
}
