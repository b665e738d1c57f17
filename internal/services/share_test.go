package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deedflowhq/deedflow/internal/models"
)

type fakeNotifier struct {
	requests    []ShareRequestEmail
	decisions   []ShareDecisionEmail
	requestErr  error
	decisionErr error
}

func (f *fakeNotifier) SendShareRequest(ctx context.Context, email ShareRequestEmail) error {
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requests = append(f.requests, email)
	return nil
}

func (f *fakeNotifier) SendShareDecision(ctx context.Context, email ShareDecisionEmail) error {
	if f.decisionErr != nil {
		return f.decisionErr
	}
	f.decisions = append(f.decisions, email)
	return nil
}

type recordingMetrics struct {
	created, viewed, approved, rejected, revoked, notifyFailed int
}

func (m *recordingMetrics) ShareCreated() { m.created++ }
func (m *recordingMetrics) ShareViewed()  { m.viewed++ }
func (m *recordingMetrics) ShareDecision(approved bool) {
	if approved {
		m.approved++
	} else {
		m.rejected++
	}
}
func (m *recordingMetrics) ShareRevoked()       { m.revoked++ }
func (m *recordingMetrics) NotificationFailed() { m.notifyFailed++ }

// shareRowValues builds the column values returned for sharedDeedColumns.
func shareRowValues(id, deedID, ownerID uuid.UUID, status string, createdAt, expiresAt time.Time) []any {
	return []any{
		id, deedID, ownerID, "Jane Reviewer", "jane@example.com", "attorney",
		nil, status, nil, createdAt, expiresAt, nil,
	}
}

func newTestShareService(db DB, notifier *fakeNotifier, now time.Time) (*ShareService, *recordingMetrics) {
	m := &recordingMetrics{}
	svc := NewShareService(db, notifier, m)
	svc.SetNow(func() time.Time { return now })
	svc.SetAsync(func(fn func()) { fn() })
	return svc, m
}

func TestShareService_Create_Success(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	owner := &models.User{ID: uuid.New(), FirstName: "Pat", LastName: "Owner"}
	deedID := uuid.New()
	shareID := uuid.New()

	var insertedToken string
	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			switch call {
			case 1:
				if !strings.Contains(sql, "status = 'completed'") {
					t.Fatalf("deed validation must require completed status: %s", sql)
				}
				return rowFromValues("123 Main St")
			default:
				insertedToken = args[6].(string)
				expiresAt := args[8].(time.Time)
				return rowFromValues(shareRowValues(shareID, deedID, owner.ID, "sent", t0, expiresAt)...)
			}
		},
	}
	notifier := &fakeNotifier{}
	svc, m := newTestShareService(db, notifier, t0)

	share, notified, err := svc.Create(context.Background(), owner, CreateShareParams{
		DeedID:         deedID,
		RecipientName:  "Jane Reviewer",
		RecipientEmail: "jane@example.com",
		RecipientRole:  "attorney",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !notified {
		t.Fatal("expected notified=true")
	}
	if share.Status != models.ShareStatusSent {
		t.Fatalf("expected status sent, got %s", share.Status)
	}
	wantExpiry := t0.Add(ShareExpiryDefaultDays * 24 * time.Hour)
	if !share.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, share.ExpiresAt)
	}
	if len(notifier.requests) != 1 {
		t.Fatalf("expected 1 request email, got %d", len(notifier.requests))
	}
	if notifier.requests[0].Token != insertedToken {
		t.Fatal("email token must match the persisted token")
	}
	if m.created != 1 {
		t.Fatalf("expected 1 created metric, got %d", m.created)
	}
}

func TestShareService_Create_DeedNotShareable(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, time.Now())

	_, _, err := svc.Create(context.Background(), &models.User{ID: uuid.New()}, CreateShareParams{
		DeedID: uuid.New(),
	})
	if !errors.Is(err, ErrInvalidDeed) {
		t.Fatalf("expected ErrInvalidDeed, got %v", err)
	}
}

func TestShareService_Create_ExpiryOutOfRange(t *testing.T) {
	svc, _ := newTestShareService(&fakeDB{}, &fakeNotifier{}, time.Now())

	_, _, err := svc.Create(context.Background(), &models.User{ID: uuid.New()}, CreateShareParams{
		DeedID:        uuid.New(),
		ExpiresInDays: ShareExpiryMaxDays + 1,
	})
	if !errors.Is(err, ErrShareExpiryOutOfRange) {
		t.Fatalf("expected ErrShareExpiryOutOfRange, got %v", err)
	}
}

func TestShareService_Create_EmailFailureIsPartialSuccess(t *testing.T) {
	t0 := time.Now()
	owner := &models.User{ID: uuid.New()}
	shareID := uuid.New()

	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			if call == 1 {
				return rowFromValues("123 Main St")
			}
			return rowFromValues(shareRowValues(shareID, uuid.New(), owner.ID, "sent", t0, t0.Add(24*time.Hour))...)
		},
	}
	notifier := &fakeNotifier{requestErr: errors.New("smtp down")}
	svc, m := newTestShareService(db, notifier, t0)

	share, notified, err := svc.Create(context.Background(), owner, CreateShareParams{DeedID: uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notified {
		t.Fatal("expected notified=false when email fails")
	}
	if share == nil || share.ID != shareID {
		t.Fatal("share record must survive the email failure")
	}
	if m.notifyFailed != 1 {
		t.Fatalf("expected 1 notification failure metric, got %d", m.notifyFailed)
	}
}

func TestShareService_TokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		token, err := generateApprovalToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(token) != 43 {
			t.Fatalf("expected 43-char token, got %d", len(token))
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token is not URL safe: %s", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestShareService_Resolve_MarksSentViewed(t *testing.T) {
	t0 := time.Now()
	shareID := uuid.New()

	var updated bool
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), "sent", t0, t0.Add(24*time.Hour))...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			if !strings.Contains(sql, "status = 'sent'") {
				t.Fatalf("viewed transition must be guarded on sent: %s", sql)
			}
			updated = true
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}
	svc, m := newTestShareService(db, &fakeNotifier{}, t0)

	share, canApprove, err := svc.Resolve(context.Background(), "token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Fatal("expected sent->viewed update")
	}
	if share.Status != models.ShareStatusViewed {
		t.Fatalf("expected viewed, got %s", share.Status)
	}
	if !canApprove {
		t.Fatal("expected canApprove=true")
	}
	if m.viewed != 1 {
		t.Fatalf("expected 1 viewed metric, got %d", m.viewed)
	}
}

func TestShareService_Resolve_ViewedIsIdempotent(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "viewed", t0, t0.Add(24*time.Hour))...)
		},
		// no ExecFunc: a second resolve must not issue another update
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	share, canApprove, err := svc.Resolve(context.Background(), "token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if share.Status != models.ShareStatusViewed {
		t.Fatalf("expected viewed, got %s", share.Status)
	}
	if !canApprove {
		t.Fatal("expected canApprove=true")
	}
}

func TestShareService_Resolve_TerminalIsReadOnly(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "approved", t0, t0.Add(24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	share, canApprove, err := svc.Resolve(context.Background(), "token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if share.Status != models.ShareStatusApproved {
		t.Fatalf("expected approved, got %s", share.Status)
	}
	if canApprove {
		t.Fatal("expected canApprove=false for a terminal share")
	}
}

func TestShareService_Resolve_RevokedLooksLikeNotFound(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "revoked", t0, t0.Add(24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	_, _, err := svc.Resolve(context.Background(), "token")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestShareService_Resolve_UnknownToken(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, time.Now())

	_, _, err := svc.Resolve(context.Background(), "nope")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestShareService_Resolve_ExpiredBeatsStatus(t *testing.T) {
	// Even a share that already reached a terminal state reports expiry
	// once the deadline passes.
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, status := range []string{"sent", "viewed", "approved", "rejected"} {
		db := &fakeDB{
			QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
				return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), status, t0, t0.Add(14*24*time.Hour))...)
			},
		}
		svc, _ := newTestShareService(db, &fakeNotifier{}, t0.Add(15*24*time.Hour))

		_, _, err := svc.Resolve(context.Background(), "token")
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("status %s: expected ErrTokenExpired, got %v", status, err)
		}
	}
}

func TestShareService_Resolve_WithinWindowStillWorks(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "viewed", t0, t0.Add(14*24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0.Add(7*24*time.Hour))

	_, canApprove, err := svc.Resolve(context.Background(), "token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !canApprove {
		t.Fatal("expected canApprove=true inside the expiry window")
	}
}

func TestShareService_Resolve_LostViewedRace(t *testing.T) {
	t0 := time.Now()
	shareID := uuid.New()

	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			status := "sent"
			if call > 1 {
				// Another request resolved the race by approving.
				status = "approved"
			}
			return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), status, t0, t0.Add(24*time.Hour))...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	share, canApprove, err := svc.Resolve(context.Background(), "token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if share.Status != models.ShareStatusApproved {
		t.Fatalf("expected the stored state after losing the race, got %s", share.Status)
	}
	if canApprove {
		t.Fatal("expected canApprove=false after the share went terminal")
	}
}

func TestShareService_Respond_Approve(t *testing.T) {
	t0 := time.Now()
	shareID := uuid.New()
	comments := "Looks good"

	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			switch call {
			case 1:
				return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), "viewed", t0, t0.Add(24*time.Hour))...)
			case 2:
				if !strings.Contains(sql, "status IN ('sent', 'viewed')") {
					t.Fatalf("decision must be a compare-and-set: %s", sql)
				}
				values := shareRowValues(shareID, uuid.New(), uuid.New(), "approved", t0, t0.Add(24*time.Hour))
				values[8] = comments
				values[11] = t0
				return rowFromValues(values...)
			default:
				// owner lookup for the decision email
				return rowFromValues("owner@example.com", "Pat", "Owner", "Jane Reviewer", "123 Main St")
			}
		},
	}
	notifier := &fakeNotifier{}
	svc, m := newTestShareService(db, notifier, t0)

	share, err := svc.Respond(context.Background(), "token", true, &comments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if share.Status != models.ShareStatusApproved {
		t.Fatalf("expected approved, got %s", share.Status)
	}
	if share.Comments == nil || *share.Comments != comments {
		t.Fatal("expected comments to be recorded")
	}
	if share.RespondedAt == nil {
		t.Fatal("expected responded_at to be set")
	}
	if len(notifier.decisions) != 1 {
		t.Fatalf("expected 1 decision email, got %d", len(notifier.decisions))
	}
	if !notifier.decisions[0].Approved {
		t.Fatal("decision email must report approval")
	}
	if m.approved != 1 {
		t.Fatalf("expected 1 approved metric, got %d", m.approved)
	}
}

func TestShareService_Respond_Reject(t *testing.T) {
	t0 := time.Now()
	shareID := uuid.New()

	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			switch call {
			case 1:
				return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), "sent", t0, t0.Add(24*time.Hour))...)
			case 2:
				return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), "rejected", t0, t0.Add(24*time.Hour))...)
			default:
				return rowFromValues("owner@example.com", "Pat", "Owner", "Jane Reviewer", "123 Main St")
			}
		},
	}
	notifier := &fakeNotifier{}
	svc, m := newTestShareService(db, notifier, t0)

	share, err := svc.Respond(context.Background(), "token", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if share.Status != models.ShareStatusRejected {
		t.Fatalf("expected rejected, got %s", share.Status)
	}
	if m.rejected != 1 {
		t.Fatalf("expected 1 rejected metric, got %d", m.rejected)
	}
}

func TestShareService_Respond_Terminal(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "rejected", t0, t0.Add(24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	_, err := svc.Respond(context.Background(), "token", true, nil)
	if !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
}

func TestShareService_Respond_Expired(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "viewed", t0.Add(-48*time.Hour), t0.Add(-time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	_, err := svc.Respond(context.Background(), "token", true, nil)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestShareService_Respond_RevokedLooksLikeNotFound(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "revoked", t0, t0.Add(24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	_, err := svc.Respond(context.Background(), "token", true, nil)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestShareService_Respond_LosesRace(t *testing.T) {
	t0 := time.Now()

	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			if call == 1 {
				return rowFromValues(shareRowValues(uuid.New(), uuid.New(), uuid.New(), "viewed", t0, t0.Add(24*time.Hour))...)
			}
			// Between the read and the update, another request won.
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	_, err := svc.Respond(context.Background(), "token", true, nil)
	if !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded after losing the race, got %v", err)
	}
}

func TestShareService_Respond_DecisionEmailFailureDoesNotFail(t *testing.T) {
	t0 := time.Now()
	shareID := uuid.New()

	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			switch call {
			case 1:
				return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), "viewed", t0, t0.Add(24*time.Hour))...)
			case 2:
				return rowFromValues(shareRowValues(shareID, uuid.New(), uuid.New(), "approved", t0, t0.Add(24*time.Hour))...)
			default:
				return rowFromValues("owner@example.com", "Pat", "Owner", "Jane Reviewer", "123 Main St")
			}
		},
	}
	notifier := &fakeNotifier{decisionErr: errors.New("smtp down")}
	svc, m := newTestShareService(db, notifier, t0)

	share, err := svc.Respond(context.Background(), "token", true, nil)
	if err != nil {
		t.Fatalf("decision must stand even when the email fails: %v", err)
	}
	if share.Status != models.ShareStatusApproved {
		t.Fatalf("expected approved, got %s", share.Status)
	}
	if m.notifyFailed != 1 {
		t.Fatalf("expected 1 notification failure metric, got %d", m.notifyFailed)
	}
}

func TestShareService_Revoke_Success(t *testing.T) {
	ownerID := uuid.New()
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			if !strings.Contains(sql, "status IN ('sent', 'viewed')") {
				t.Fatalf("revoke must be a compare-and-set: %s", sql)
			}
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}
	svc, m := newTestShareService(db, &fakeNotifier{}, time.Now())

	if err := svc.Revoke(context.Background(), ownerID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.revoked != 1 {
		t.Fatalf("expected 1 revoked metric, got %d", m.revoked)
	}
}

func TestShareService_Revoke_NotFound(t *testing.T) {
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, time.Now())

	err := svc.Revoke(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("expected ErrShareNotFound, got %v", err)
	}
}

func TestShareService_Revoke_NotOwner(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(uuid.New(), "sent", t0.Add(24*time.Hour))
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	err := svc.Revoke(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestShareService_Revoke_AlreadyResponded(t *testing.T) {
	t0 := time.Now()
	ownerID := uuid.New()
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(ownerID, "approved", t0.Add(24*time.Hour))
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	err := svc.Revoke(context.Background(), ownerID, uuid.New())
	if !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
}

func TestShareService_Revoke_Expired(t *testing.T) {
	t0 := time.Now()
	ownerID := uuid.New()
	db := &fakeDB{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(ownerID, "sent", t0.Add(-time.Hour))
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	err := svc.Revoke(context.Background(), ownerID, uuid.New())
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func resendRowValues(shareID, ownerID uuid.UUID, status, token string, createdAt, expiresAt time.Time) []any {
	values := shareRowValues(shareID, uuid.New(), ownerID, status, createdAt, expiresAt)
	return append(values, token, "123 Main St")
}

func TestShareService_Resend_ReusesToken(t *testing.T) {
	t0 := time.Now()
	owner := &models.User{ID: uuid.New(), FirstName: "Pat", LastName: "Owner"}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "UPDATE") || strings.Contains(sql, "INSERT") {
				t.Fatalf("resend must not mutate the share: %s", sql)
			}
			return rowFromValues(resendRowValues(uuid.New(), owner.ID, "sent", "original-token", t0, t0.Add(24*time.Hour))...)
		},
	}
	notifier := &fakeNotifier{}
	svc, _ := newTestShareService(db, notifier, t0)

	if err := svc.Resend(context.Background(), owner, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.requests) != 1 {
		t.Fatalf("expected 1 request email, got %d", len(notifier.requests))
	}
	if notifier.requests[0].Token != "original-token" {
		t.Fatalf("resend must reuse the original token, got %s", notifier.requests[0].Token)
	}
}

func TestShareService_Resend_NotOwner(t *testing.T) {
	t0 := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(resendRowValues(uuid.New(), uuid.New(), "sent", "token", t0, t0.Add(24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	err := svc.Resend(context.Background(), &models.User{ID: uuid.New()}, uuid.New())
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestShareService_Resend_Terminal(t *testing.T) {
	t0 := time.Now()
	owner := &models.User{ID: uuid.New()}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(resendRowValues(uuid.New(), owner.ID, "approved", "token", t0, t0.Add(24*time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	err := svc.Resend(context.Background(), owner, uuid.New())
	if !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
}

func TestShareService_Resend_Expired(t *testing.T) {
	t0 := time.Now()
	owner := &models.User{ID: uuid.New()}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(resendRowValues(uuid.New(), owner.ID, "sent", "token", t0.Add(-48*time.Hour), t0.Add(-time.Hour))...)
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	err := svc.Resend(context.Background(), owner, uuid.New())
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestShareService_Resend_NotificationFailure(t *testing.T) {
	t0 := time.Now()
	owner := &models.User{ID: uuid.New()}
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(resendRowValues(uuid.New(), owner.ID, "viewed", "token", t0, t0.Add(24*time.Hour))...)
		},
	}
	notifier := &fakeNotifier{requestErr: errors.New("smtp down")}
	svc, m := newTestShareService(db, notifier, t0)

	err := svc.Resend(context.Background(), owner, uuid.New())
	if !errors.Is(err, ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed, got %v", err)
	}
	if m.notifyFailed != 1 {
		t.Fatalf("expected 1 notification failure metric, got %d", m.notifyFailed)
	}
}

func TestShareService_Resend_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, time.Now())

	err := svc.Resend(context.Background(), &models.User{ID: uuid.New()}, uuid.New())
	if !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("expected ErrShareNotFound, got %v", err)
	}
}

func TestShareService_List_Empty(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{}, nil
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, time.Now())

	shares, err := svc.List(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if len(shares) != 0 {
		t.Fatalf("expected no shares, got %d", len(shares))
	}
}

func TestShareService_List_ReturnsNewestFirst(t *testing.T) {
	t0 := time.Now()
	ownerID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if !strings.Contains(sql, "ORDER BY created_at DESC") {
				t.Fatalf("listing must order newest first: %s", sql)
			}
			return &fakeRows{rows: [][]any{
				shareRowValues(first, uuid.New(), ownerID, "revoked", t0, t0.Add(24*time.Hour)),
				shareRowValues(second, uuid.New(), ownerID, "sent", t0.Add(-time.Hour), t0.Add(24*time.Hour)),
			}}, nil
		},
	}
	svc, _ := newTestShareService(db, &fakeNotifier{}, t0)

	shares, err := svc.List(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	if shares[0].ID != first || shares[1].ID != second {
		t.Fatal("expected rows in query order")
	}
	if shares[0].Status != models.ShareStatusRevoked {
		t.Fatal("revoked shares must remain visible to the owner")
	}
}
