package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/usecase"
)

// AuditHandler exposes the audit log and rollback over HTTP.
type AuditHandler struct {
	audit *usecase.AuditUseCase
	auth  *AuthMiddleware
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *usecase.AuditUseCase, auth *AuthMiddleware) *AuditHandler {
	return &AuditHandler{audit: audit, auth: auth}
}

// RegisterRoutes registers audit routes on the router
func (h *AuditHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/audit-log", h.auth.RequireAuth(h.List)).Methods("GET")
	router.HandleFunc("/api/audit-log/{id}/rollback", h.auth.RequireAuth(h.Rollback)).Methods("POST")
}

// List returns audit entries matching the query filters, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{}
	q := r.URL.Query()

	if v := q.Get("entity_type"); v != "" {
		t := domain.EntityType(v)
		filter.EntityType = &t
	}
	if v := q.Get("entity_id"); v != "" {
		filter.EntityID = &v
	}
	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("action"); v != "" {
		a := domain.AuditAction(v)
		filter.Action = &a
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondBadRequest(w, "Invalid 'from' timestamp")
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondBadRequest(w, "Invalid 'to' timestamp")
			return
		}
		filter.To = &t
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondBadRequest(w, "Invalid 'limit'")
			return
		}
		filter.Limit = n
	}

	entries, err := h.audit.GetAuditLog(r.Context(), filter)
	if err != nil {
		respondInternalError(w, "Failed to query audit log")
		return
	}
	respondSuccess(w, http.StatusOK, "Audit log retrieved", entries)
}

// Rollback reverses the mutation recorded by one audit entry. A refused
// rollback (missing entry, bulk action, drifted row) surfaces as an
// explicit operation-failed message, not an error.
func (h *AuditHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	auditLogID := mux.Vars(r)["id"]

	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	ok, err := h.audit.RollbackOperation(r.Context(), auditLogID, userID)
	if err != nil {
		respondInternalError(w, "Rollback failed")
		return
	}
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "Rollback refused: nothing was changed")
		return
	}
	respondSuccess(w, http.StatusOK, "Rollback performed", nil)
}
