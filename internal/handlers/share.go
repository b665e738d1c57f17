package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/deedflowhq/deedflow/internal/models"
	"github.com/deedflowhq/deedflow/internal/services"
)

// ShareHandler covers the owner-facing half of the sharing workflow. The
// recipient-facing token endpoints live in ApprovalHandler.
type ShareHandler struct {
	shareService services.ShareServiceInterface
}

func NewShareHandler(shareService services.ShareServiceInterface) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type CreateShareRequest struct {
	DeedID         string  `json:"deed_id"`
	RecipientName  string  `json:"recipient_name"`
	RecipientEmail string  `json:"recipient_email"`
	RecipientRole  string  `json:"recipient_role"`
	Message        *string `json:"message,omitempty"`
	ExpiresInDays  int     `json:"expires_in_days,omitempty"`
}

type ShareResponse struct {
	Share    *models.SharedDeed  `json:"share,omitempty"`
	Shares   []models.SharedDeed `json:"shares,omitempty"`
	Notified *bool               `json:"notified,omitempty"`
	Message  string              `json:"message,omitempty"`
}

var validRecipientRoles = map[string]bool{
	"buyer":       true,
	"seller":      true,
	"agent":       true,
	"attorney":    true,
	"escrow":      true,
	"title":       true,
	"notary":      true,
	"other":       true,
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deedID, err := uuid.Parse(req.DeedID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deed ID")
		return
	}

	req.RecipientName = strings.TrimSpace(req.RecipientName)
	if req.RecipientName == "" {
		writeError(w, http.StatusBadRequest, "Recipient name is required")
		return
	}

	req.RecipientEmail = strings.TrimSpace(strings.ToLower(req.RecipientEmail))
	if _, err := mail.ParseAddress(req.RecipientEmail); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipient email")
		return
	}

	req.RecipientRole = strings.TrimSpace(req.RecipientRole)
	if !validRecipientRoles[req.RecipientRole] {
		writeError(w, http.StatusBadRequest, "Invalid recipient role")
		return
	}

	share, notified, err := h.shareService.Create(r.Context(), user, services.CreateShareParams{
		DeedID:         deedID,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		RecipientRole:  req.RecipientRole,
		Message:        req.Message,
		ExpiresInDays:  req.ExpiresInDays,
	})
	if errors.Is(err, services.ErrInvalidDeed) {
		writeError(w, http.StatusBadRequest, "Deed must exist, belong to you, and be completed before sharing")
		return
	}
	if errors.Is(err, services.ErrShareExpiryOutOfRange) {
		writeError(w, http.StatusBadRequest, "Expiry must be between 1 and 90 days")
		return
	}
	if err != nil {
		log.Printf("Error creating share: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := ShareResponse{Share: share, Notified: &notified}
	if !notified {
		resp.Message = "Share created but the notification email failed; use resend to retry"
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	shares, err := h.shareService.List(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing shares: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ShareResponse{Shares: shares})
}

func (h *ShareHandler) Resend(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	shareID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid share ID")
		return
	}

	err = h.shareService.Resend(r.Context(), user, shareID)
	switch {
	case errors.Is(err, services.ErrShareNotFound):
		writeError(w, http.StatusNotFound, "Share not found")
		return
	case errors.Is(err, services.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "You do not own this share")
		return
	case errors.Is(err, services.ErrAlreadyResponded):
		writeError(w, http.StatusConflict, "Share has already been resolved")
		return
	case errors.Is(err, services.ErrTokenExpired):
		writeError(w, http.StatusGone, "Share has expired")
		return
	case errors.Is(err, services.ErrNotificationFailed):
		writeError(w, http.StatusBadGateway, "Failed to send notification email")
		return
	case err != nil:
		log.Printf("Error resending share: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ShareResponse{Message: "Notification email resent"})
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	shareID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid share ID")
		return
	}

	err = h.shareService.Revoke(r.Context(), user.ID, shareID)
	switch {
	case errors.Is(err, services.ErrShareNotFound):
		writeError(w, http.StatusNotFound, "Share not found")
		return
	case errors.Is(err, services.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "You do not own this share")
		return
	case errors.Is(err, services.ErrAlreadyResponded):
		writeError(w, http.StatusConflict, "Share has already been resolved")
		return
	case errors.Is(err, services.ErrTokenExpired):
		writeError(w, http.StatusGone, "Share has expired")
		return
	case err != nil:
		log.Printf("Error revoking share: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ShareResponse{Message: "Share revoked"})
}
