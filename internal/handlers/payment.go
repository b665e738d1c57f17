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

type PaymentHandler struct {
	paymentService services.PaymentServiceInterface
}

func NewPaymentHandler(paymentService services.PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type AttachPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	MakeDefault     bool   `json:"make_default,omitempty"`
}

type PaymentMethodResponse struct {
	PaymentMethod  *models.PaymentMethod  `json:"payment_method,omitempty"`
	PaymentMethods []models.PaymentMethod `json:"payment_methods,omitempty"`
	Message        string                 `json:"message,omitempty"`
}

func (h *PaymentHandler) Attach(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req AttachPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.PaymentMethodID = strings.TrimSpace(req.PaymentMethodID)
	if req.PaymentMethodID == "" {
		writeError(w, http.StatusBadRequest, "Payment method ID is required")
		return
	}

	method, err := h.paymentService.Attach(r.Context(), user, req.PaymentMethodID, req.MakeDefault)
	if errors.Is(err, services.ErrBillingFailed) {
		writeError(w, http.StatusBadGateway, "Payment provider rejected the request")
		return
	}
	if err != nil {
		log.Printf("Error attaching payment method: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, PaymentMethodResponse{PaymentMethod: method})
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	methods, err := h.paymentService.List(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing payment methods: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PaymentMethodResponse{PaymentMethods: methods})
}

func (h *PaymentHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	methodID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment method ID")
		return
	}

	err = h.paymentService.SetDefault(r.Context(), user.ID, methodID)
	if errors.Is(err, services.ErrPaymentMethodNotFound) {
		writeError(w, http.StatusNotFound, "Payment method not found")
		return
	}
	if err != nil {
		log.Printf("Error setting default payment method: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PaymentMethodResponse{Message: "Default payment method updated"})
}

func (h *PaymentHandler) Detach(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	methodID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment method ID")
		return
	}

	err = h.paymentService.Detach(r.Context(), user.ID, methodID)
	if errors.Is(err, services.ErrPaymentMethodNotFound) {
		writeError(w, http.StatusNotFound, "Payment method not found")
		return
	}
	if errors.Is(err, services.ErrBillingFailed) {
		writeError(w, http.StatusBadGateway, "Payment provider rejected the request")
		return
	}
	if err != nil {
		log.Printf("Error detaching payment method: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PaymentMethodResponse{Message: "Payment method removed"})
}
