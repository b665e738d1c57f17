package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/deedflowhq/deedflow/internal/models"
	"github.com/deedflowhq/deedflow/internal/services"
)

// maxCommentLength bounds approver comments; anything longer is almost
// certainly not a review note.
const maxCommentLength = 2000

// ApprovalHandler serves the unauthenticated token endpoints recipients
// reach from their email. The token in the URL is the only credential.
type ApprovalHandler struct {
	shareService services.ShareServiceInterface
}

func NewApprovalHandler(shareService services.ShareServiceInterface) *ApprovalHandler {
	return &ApprovalHandler{shareService: shareService}
}

type RespondRequest struct {
	Approved *bool   `json:"approved"`
	Comments *string `json:"comments,omitempty"`
}

type ApprovalResponse struct {
	Share      *models.SharedDeed `json:"share,omitempty"`
	CanApprove bool               `json:"can_approve"`
	Message    string             `json:"message,omitempty"`
}

// View resolves the token for the recipient's review page. The first view of
// a sent share flips it to viewed.
func (h *ApprovalHandler) View(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}

	share, canApprove, err := h.shareService.Resolve(r.Context(), token)
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "Share not found")
		return
	case errors.Is(err, services.ErrTokenExpired):
		writeError(w, http.StatusGone, "This share link has expired")
		return
	case err != nil:
		log.Printf("Error resolving approval token: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ApprovalResponse{Share: share, CanApprove: canApprove})
}

// Respond records the recipient's approve/reject decision.
func (h *ApprovalHandler) Respond(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Approved == nil {
		writeError(w, http.StatusBadRequest, "The approved field is required")
		return
	}
	if req.Comments != nil {
		trimmed := strings.TrimSpace(*req.Comments)
		if trimmed == "" {
			req.Comments = nil
		} else if len(trimmed) > maxCommentLength {
			writeError(w, http.StatusBadRequest, "Comments must be 2000 characters or less")
			return
		} else {
			req.Comments = &trimmed
		}
	}

	share, err := h.shareService.Respond(r.Context(), token, *req.Approved, req.Comments)
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "Share not found")
		return
	case errors.Is(err, services.ErrTokenExpired):
		writeError(w, http.StatusGone, "This share link has expired")
		return
	case errors.Is(err, services.ErrAlreadyResponded):
		writeError(w, http.StatusConflict, "A decision has already been recorded for this share")
		return
	case err != nil:
		log.Printf("Error recording share decision: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	message := "Deed rejected"
	if *req.Approved {
		message = "Deed approved"
	}
	writeJSON(w, http.StatusOK, ApprovalResponse{Share: share, Message: message})
}
