package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/deedflowhq/deedflow/internal/models"
	"github.com/deedflowhq/deedflow/internal/services"
)

type DeedHandler struct {
	deedService services.DeedServiceInterface
}

func NewDeedHandler(deedService services.DeedServiceInterface) *DeedHandler {
	return &DeedHandler{deedService: deedService}
}

type CreateDeedRequest struct {
	DeedType         string   `json:"deed_type"`
	PropertyAddress  string   `json:"property_address"`
	APN              *string  `json:"apn,omitempty"`
	County           *string  `json:"county,omitempty"`
	LegalDescription *string  `json:"legal_description,omitempty"`
	OwnerType        *string  `json:"owner_type,omitempty"`
	SalesPrice       *float64 `json:"sales_price,omitempty"`
	GranteeName      *string  `json:"grantee_name,omitempty"`
	Vesting          *string  `json:"vesting,omitempty"`
}

type UpdateDeedRequest struct {
	DeedType         *string  `json:"deed_type,omitempty"`
	PropertyAddress  *string  `json:"property_address,omitempty"`
	APN              *string  `json:"apn,omitempty"`
	County           *string  `json:"county,omitempty"`
	LegalDescription *string  `json:"legal_description,omitempty"`
	OwnerType        *string  `json:"owner_type,omitempty"`
	SalesPrice       *float64 `json:"sales_price,omitempty"`
	GranteeName      *string  `json:"grantee_name,omitempty"`
	Vesting          *string  `json:"vesting,omitempty"`
}

type DeedResponse struct {
	Deed    *models.Deed  `json:"deed,omitempty"`
	Deeds   []models.Deed `json:"deeds,omitempty"`
	Message string        `json:"message,omitempty"`
}

var validDeedTypes = map[string]bool{
	"grant_deed":      true,
	"quitclaim_deed":  true,
	"warranty_deed":   true,
	"interspousal":    true,
	"trust_transfer":  true,
}

func (h *DeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateDeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.DeedType = strings.TrimSpace(req.DeedType)
	if !validDeedTypes[req.DeedType] {
		writeError(w, http.StatusBadRequest, "Invalid deed type")
		return
	}

	req.PropertyAddress = strings.TrimSpace(req.PropertyAddress)
	if req.PropertyAddress == "" {
		writeError(w, http.StatusBadRequest, "Property address is required")
		return
	}

	deed, err := h.deedService.Create(r.Context(), user.ID, models.CreateDeedParams{
		DeedType:         req.DeedType,
		PropertyAddress:  req.PropertyAddress,
		APN:              req.APN,
		County:           req.County,
		LegalDescription: req.LegalDescription,
		OwnerType:        req.OwnerType,
		SalesPrice:       req.SalesPrice,
		GranteeName:      req.GranteeName,
		Vesting:          req.Vesting,
	})
	if err != nil {
		log.Printf("Error creating deed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, DeedResponse{Deed: deed})
}

func (h *DeedHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	deeds, err := h.deedService.ListByUser(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing deeds: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DeedResponse{Deeds: deeds})
}

func (h *DeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	deedID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deed ID")
		return
	}

	deed, err := h.deedService.GetByID(r.Context(), user.ID, deedID)
	if errors.Is(err, services.ErrDeedNotFound) {
		writeError(w, http.StatusNotFound, "Deed not found")
		return
	}
	if err != nil {
		log.Printf("Error getting deed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DeedResponse{Deed: deed})
}

func (h *DeedHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	deedID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deed ID")
		return
	}

	var req UpdateDeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DeedType != nil && !validDeedTypes[*req.DeedType] {
		writeError(w, http.StatusBadRequest, "Invalid deed type")
		return
	}
	if req.PropertyAddress != nil && strings.TrimSpace(*req.PropertyAddress) == "" {
		writeError(w, http.StatusBadRequest, "Property address cannot be empty")
		return
	}

	deed, err := h.deedService.Update(r.Context(), user.ID, deedID, models.UpdateDeedParams{
		DeedType:         req.DeedType,
		PropertyAddress:  req.PropertyAddress,
		APN:              req.APN,
		County:           req.County,
		LegalDescription: req.LegalDescription,
		OwnerType:        req.OwnerType,
		SalesPrice:       req.SalesPrice,
		GranteeName:      req.GranteeName,
		Vesting:          req.Vesting,
	})
	if errors.Is(err, services.ErrDeedNotFound) {
		writeError(w, http.StatusNotFound, "Deed not found")
		return
	}
	if errors.Is(err, services.ErrDeedCompleted) {
		writeError(w, http.StatusConflict, "Completed deeds cannot be edited")
		return
	}
	if err != nil {
		log.Printf("Error updating deed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DeedResponse{Deed: deed})
}

func (h *DeedHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	deedID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deed ID")
		return
	}

	deed, err := h.deedService.Finalize(r.Context(), user.ID, deedID)
	if errors.Is(err, services.ErrDeedNotFound) {
		writeError(w, http.StatusNotFound, "Deed not found")
		return
	}
	if errors.Is(err, services.ErrDeedCompleted) {
		writeError(w, http.StatusConflict, "Deed is already completed")
		return
	}
	if err != nil {
		log.Printf("Error finalizing deed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DeedResponse{Deed: deed, Message: "Deed completed"})
}

func (h *DeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	deedID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deed ID")
		return
	}

	err = h.deedService.Delete(r.Context(), user.ID, deedID)
	if errors.Is(err, services.ErrDeedNotFound) {
		writeError(w, http.StatusNotFound, "Deed not found")
		return
	}
	if errors.Is(err, services.ErrDeedCompleted) {
		writeError(w, http.StatusConflict, "Completed deeds cannot be deleted")
		return
	}
	if err != nil {
		log.Printf("Error deleting deed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DeedResponse{Message: "Deed deleted"})
}

func parseIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
