package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deedflowhq/deedflow/internal/logging"
	"github.com/deedflowhq/deedflow/internal/models"
)

const (
	ShareExpiryDefaultDays = 14
	ShareExpiryMaxDays     = 90

	// Decision emails go out in the background; they must never hold the
	// approver's response open.
	decisionNotifyTimeout = 10 * time.Second
)

var (
	ErrInvalidDeed           = errors.New("deed not shareable")
	ErrShareNotFound         = errors.New("shared deed not found")
	ErrTokenNotFound         = errors.New("approval token not found")
	ErrTokenExpired          = errors.New("approval token expired")
	ErrAlreadyResponded      = errors.New("share already in a terminal state")
	ErrNotificationFailed    = errors.New("notification delivery failed")
	ErrShareExpiryOutOfRange = errors.New("share expiry out of range")
	ErrNotAuthorized         = errors.New("not authorized")
)

// ShareRequestEmail carries everything the notifier needs to invite a
// recipient to review a deed. Token is the plaintext approval token; it is
// never persisted anywhere except the shared_deeds row it belongs to.
type ShareRequestEmail struct {
	RecipientName   string
	RecipientEmail  string
	RecipientRole   string
	OwnerName       string
	PropertyAddress string
	Message         *string
	Token           string
	ExpiresAt       time.Time
}

// ShareDecisionEmail reports an approver's decision back to the deed owner.
type ShareDecisionEmail struct {
	OwnerName       string
	OwnerEmail      string
	RecipientName   string
	PropertyAddress string
	Approved        bool
	Comments        *string
}

// ShareNotifier sends share-workflow email. Delivery failure is surfaced to
// the caller but never rolls back a persisted state change.
type ShareNotifier interface {
	SendShareRequest(ctx context.Context, email ShareRequestEmail) error
	SendShareDecision(ctx context.Context, email ShareDecisionEmail) error
}

// ShareMetrics counts workflow events. Implemented by metrics.Collector.
type ShareMetrics interface {
	ShareCreated()
	ShareViewed()
	ShareDecision(approved bool)
	ShareRevoked()
	NotificationFailed()
}

type nopShareMetrics struct{}

func (nopShareMetrics) ShareCreated()              {}
func (nopShareMetrics) ShareViewed()               {}
func (nopShareMetrics) ShareDecision(approved bool) {}
func (nopShareMetrics) ShareRevoked()              {}
func (nopShareMetrics) NotificationFailed()        {}

type CreateShareParams struct {
	DeedID         uuid.UUID
	RecipientName  string
	RecipientEmail string
	RecipientRole  string
	Message        *string
	ExpiresInDays  int
}

type ShareService struct {
	db       DB
	notifier ShareNotifier
	metrics  ShareMetrics
	now      func() time.Time
	async    func(fn func())
	asyncCtx context.Context
}

func NewShareService(db DB, notifier ShareNotifier, metrics ShareMetrics) *ShareService {
	if metrics == nil {
		metrics = nopShareMetrics{}
	}
	return &ShareService{
		db:       db,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
		async: func(fn func()) {
			go fn()
		},
		asyncCtx: context.Background(),
	}
}

// SetNow overrides the clock. Each operation reads the clock once and reuses
// that instant for every expiry comparison it makes.
func (s *ShareService) SetNow(now func() time.Time) {
	s.now = now
}

// SetAsync overrides background dispatch (tests run it synchronously).
func (s *ShareService) SetAsync(fn func(fn func())) {
	s.async = fn
}

const sharedDeedColumns = `id, deed_id, owner_user_id, recipient_name, recipient_email,
	        recipient_role, message, status, comments, created_at, expires_at, responded_at`

// Create validates that the deed is completed and owned by the caller,
// issues a fresh approval token, persists the share with status=sent, and
// emails the recipient. When the email fails the record is kept so the owner
// can retry via Resend; the second return value reports delivery.
func (s *ShareService) Create(ctx context.Context, owner *models.User, params CreateShareParams) (*models.SharedDeed, bool, error) {
	expiresInDays := params.ExpiresInDays
	if expiresInDays <= 0 {
		expiresInDays = ShareExpiryDefaultDays
	}
	if expiresInDays > ShareExpiryMaxDays {
		return nil, false, ErrShareExpiryOutOfRange
	}

	now := s.now()

	var propertyAddress string
	err := s.db.QueryRow(ctx,
		`SELECT property_address FROM deeds WHERE id = $1 AND user_id = $2 AND status = 'completed'`,
		params.DeedID, owner.ID,
	).Scan(&propertyAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, ErrInvalidDeed
	}
	if err != nil {
		return nil, false, fmt.Errorf("validating deed: %w", err)
	}

	token, err := generateApprovalToken()
	if err != nil {
		return nil, false, err
	}
	expiresAt := now.Add(time.Duration(expiresInDays) * 24 * time.Hour)

	share := &models.SharedDeed{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO shared_deeds (deed_id, owner_user_id, recipient_name, recipient_email,
		        recipient_role, message, approval_token, status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'sent', $8, $9)
		 RETURNING `+sharedDeedColumns,
		params.DeedID, owner.ID, params.RecipientName, params.RecipientEmail,
		params.RecipientRole, params.Message, token, now, expiresAt,
	).Scan(shareScanDest(share)...)
	if err != nil {
		return nil, false, fmt.Errorf("creating shared deed: %w", err)
	}
	s.metrics.ShareCreated()

	err = s.notifier.SendShareRequest(ctx, ShareRequestEmail{
		RecipientName:   params.RecipientName,
		RecipientEmail:  params.RecipientEmail,
		RecipientRole:   params.RecipientRole,
		OwnerName:       owner.FullName(),
		PropertyAddress: propertyAddress,
		Message:         params.Message,
		Token:           token,
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		s.metrics.NotificationFailed()
		logging.Error("Share request email failed", map[string]interface{}{
			"error":    err.Error(),
			"share_id": share.ID.String(),
		})
		return share, false, nil
	}

	return share, true, nil
}

// Resolve maps a token to its share for the public approval page. Revoked
// shares resolve as not-found so their existence is not leaked. The first
// resolution of a sent share moves it to viewed; resolving again is a no-op.
// Terminal shares still resolve read-only, with canApprove=false.
func (s *ShareService) Resolve(ctx context.Context, token string) (*models.SharedDeed, bool, error) {
	now := s.now()

	share, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if share.Status == models.ShareStatusRevoked {
		return nil, false, ErrTokenNotFound
	}
	if now.After(share.ExpiresAt) {
		return nil, false, ErrTokenExpired
	}

	if share.Status == models.ShareStatusSent {
		tag, err := s.db.Exec(ctx,
			`UPDATE shared_deeds SET status = 'viewed' WHERE id = $1 AND status = 'sent'`,
			share.ID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("marking share viewed: %w", err)
		}
		if tag.RowsAffected() == 1 {
			share.Status = models.ShareStatusViewed
			s.metrics.ShareViewed()
		} else {
			// Lost a race with another transition; report the stored state.
			share, err = s.getByToken(ctx, token)
			if err != nil {
				return nil, false, err
			}
			if share.Status == models.ShareStatusRevoked {
				return nil, false, ErrTokenNotFound
			}
		}
	}

	return share, !share.Status.IsTerminal(), nil
}

// Respond records the approver's decision. Expiry is checked before the
// terminal-state check; the transition itself is a compare-and-set from
// {sent, viewed}, so a concurrent approve/revoke loses cleanly with
// ErrAlreadyResponded. The owner is notified in the background.
func (s *ShareService) Respond(ctx context.Context, token string, approved bool, comments *string) (*models.SharedDeed, error) {
	now := s.now()

	share, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if share.Status == models.ShareStatusRevoked {
		return nil, ErrTokenNotFound
	}
	if now.After(share.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if share.Status.IsTerminal() {
		return nil, ErrAlreadyResponded
	}

	newStatus := models.ShareStatusRejected
	if approved {
		newStatus = models.ShareStatusApproved
	}

	updated := &models.SharedDeed{}
	err = s.db.QueryRow(ctx,
		`UPDATE shared_deeds
		 SET status = $1, comments = $2, responded_at = $3
		 WHERE id = $4 AND status IN ('sent', 'viewed')
		 RETURNING `+sharedDeedColumns,
		string(newStatus), comments, now, share.ID,
	).Scan(shareScanDest(updated)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyResponded
	}
	if err != nil {
		return nil, fmt.Errorf("recording share decision: %w", err)
	}
	s.metrics.ShareDecision(approved)

	s.dispatchDecisionEmail(updated.ID, approved, comments)

	return updated, nil
}

// Revoke is owner-only and valid from {sent, viewed} while the share is
// unexpired. The token becomes unresolvable afterwards (not-found, never
// expired, so revocation is indistinguishable from a bad token).
func (s *ShareService) Revoke(ctx context.Context, ownerID, shareID uuid.UUID) error {
	now := s.now()

	tag, err := s.db.Exec(ctx,
		`UPDATE shared_deeds SET status = 'revoked'
		 WHERE id = $1 AND owner_user_id = $2 AND status IN ('sent', 'viewed') AND expires_at > $3`,
		shareID, ownerID, now,
	)
	if err != nil {
		return fmt.Errorf("revoking share: %w", err)
	}
	if tag.RowsAffected() == 1 {
		s.metrics.ShareRevoked()
		return nil
	}

	return s.diagnoseOwnerConflict(ctx, ownerID, shareID, now)
}

// Resend re-triggers the recipient email without touching status, token, or
// expiry. Same preconditions as Revoke.
func (s *ShareService) Resend(ctx context.Context, owner *models.User, shareID uuid.UUID) error {
	now := s.now()

	share := &models.SharedDeed{}
	var token string
	var propertyAddress string
	dest := append(shareScanDest(share), &token, &propertyAddress)
	err := s.db.QueryRow(ctx,
		`SELECT sd.id, sd.deed_id, sd.owner_user_id, sd.recipient_name, sd.recipient_email,
		        sd.recipient_role, sd.message, sd.status, sd.comments, sd.created_at,
		        sd.expires_at, sd.responded_at, sd.approval_token, d.property_address
		 FROM shared_deeds sd
		 JOIN deeds d ON sd.deed_id = d.id
		 WHERE sd.id = $1`,
		shareID,
	).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrShareNotFound
	}
	if err != nil {
		return fmt.Errorf("loading share for resend: %w", err)
	}

	if share.OwnerUserID != owner.ID {
		return ErrNotAuthorized
	}
	if share.Status.IsTerminal() {
		return ErrAlreadyResponded
	}
	if now.After(share.ExpiresAt) {
		return ErrTokenExpired
	}

	err = s.notifier.SendShareRequest(ctx, ShareRequestEmail{
		RecipientName:   share.RecipientName,
		RecipientEmail:  share.RecipientEmail,
		RecipientRole:   share.RecipientRole,
		OwnerName:       owner.FullName(),
		PropertyAddress: propertyAddress,
		Message:         share.Message,
		Token:           token,
		ExpiresAt:       share.ExpiresAt,
	})
	if err != nil {
		s.metrics.NotificationFailed()
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

// List returns all of the owner's shares, newest first. Revoked and expired
// records are included; they are retained for audit.
func (s *ShareService) List(ctx context.Context, ownerID uuid.UUID) ([]models.SharedDeed, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+sharedDeedColumns+`
		 FROM shared_deeds
		 WHERE owner_user_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	defer rows.Close()

	var shares []models.SharedDeed
	for rows.Next() {
		var share models.SharedDeed
		if err := rows.Scan(shareScanDest(&share)...); err != nil {
			return nil, fmt.Errorf("scanning share: %w", err)
		}
		shares = append(shares, share)
	}
	if shares == nil {
		shares = []models.SharedDeed{}
	}
	return shares, nil
}

func (s *ShareService) getByToken(ctx context.Context, token string) (*models.SharedDeed, error) {
	share := &models.SharedDeed{}
	err := s.db.QueryRow(ctx,
		`SELECT `+sharedDeedColumns+` FROM shared_deeds WHERE approval_token = $1`,
		token,
	).Scan(shareScanDest(share)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading share by token: %w", err)
	}
	return share, nil
}

func (s *ShareService) diagnoseOwnerConflict(ctx context.Context, ownerID, shareID uuid.UUID, now time.Time) error {
	var storedOwner uuid.UUID
	var status models.ShareStatus
	var expiresAt time.Time
	err := s.db.QueryRow(ctx,
		`SELECT owner_user_id, status, expires_at FROM shared_deeds WHERE id = $1`,
		shareID,
	).Scan(&storedOwner, &status, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrShareNotFound
	}
	if err != nil {
		return fmt.Errorf("loading share: %w", err)
	}
	if storedOwner != ownerID {
		return ErrNotAuthorized
	}
	if status.IsTerminal() {
		return ErrAlreadyResponded
	}
	if now.After(expiresAt) {
		return ErrTokenExpired
	}
	return ErrAlreadyResponded
}

func (s *ShareService) dispatchDecisionEmail(shareID uuid.UUID, approved bool, comments *string) {
	if s.notifier == nil || s.async == nil {
		return
	}
	s.async(func() {
		baseCtx := s.asyncCtx
		if baseCtx == nil {
			baseCtx = context.Background()
		}
		ctx, cancel := context.WithTimeout(baseCtx, decisionNotifyTimeout)
		defer cancel()

		var ownerEmail, ownerFirst, ownerLast, recipientName, propertyAddress string
		err := s.db.QueryRow(ctx,
			`SELECT u.email, u.first_name, u.last_name, sd.recipient_name, d.property_address
			 FROM shared_deeds sd
			 JOIN users u ON sd.owner_user_id = u.id
			 JOIN deeds d ON sd.deed_id = d.id
			 WHERE sd.id = $1`,
			shareID,
		).Scan(&ownerEmail, &ownerFirst, &ownerLast, &recipientName, &propertyAddress)
		if err != nil {
			logging.Error("Failed to load owner for decision email", map[string]interface{}{
				"error":    err.Error(),
				"share_id": shareID.String(),
			})
			return
		}

		owner := models.User{FirstName: ownerFirst, LastName: ownerLast}
		err = s.notifier.SendShareDecision(ctx, ShareDecisionEmail{
			OwnerName:       owner.FullName(),
			OwnerEmail:      ownerEmail,
			RecipientName:   recipientName,
			PropertyAddress: propertyAddress,
			Approved:        approved,
			Comments:        comments,
		})
		if err != nil {
			s.metrics.NotificationFailed()
			logging.Error("Decision email failed", map[string]interface{}{
				"error":    err.Error(),
				"share_id": shareID.String(),
			})
		}
	})
}

func shareScanDest(share *models.SharedDeed) []any {
	return []any{
		&share.ID,
		&share.DeedID,
		&share.OwnerUserID,
		&share.RecipientName,
		&share.RecipientEmail,
		&share.RecipientRole,
		&share.Message,
		&share.Status,
		&share.Comments,
		&share.CreatedAt,
		&share.ExpiresAt,
		&share.RespondedAt,
	}
}

// generateApprovalToken returns a 256-bit random token. The token is a
// bearer credential for the approval flow, so it must be unguessable; it is
// never derived from share attributes.
func generateApprovalToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating approval token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
