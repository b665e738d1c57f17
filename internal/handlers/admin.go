package handlers

import (
	"log"
	"net/http"

	"github.com/deedflowhq/deedflow/internal/services"
)

// AdminHandler serves the reporting surface. Routes are additionally gated
// by middleware.RequireAdmin; the role check here covers direct use.
type AdminHandler struct {
	adminService services.AdminServiceInterface
}

func NewAdminHandler(adminService services.AdminServiceInterface) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) Report(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}

	report, err := h.adminService.Report(r.Context())
	if err != nil {
		log.Printf("Error building admin report: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
