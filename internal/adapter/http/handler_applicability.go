package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/usecase"
)

// ApplicabilityHandler exposes the applicability engine over HTTP.
type ApplicabilityHandler struct {
	applicability *usecase.ApplicabilityUseCase
	auth          *AuthMiddleware
}

// NewApplicabilityHandler creates a new applicability handler
func NewApplicabilityHandler(applicability *usecase.ApplicabilityUseCase, auth *AuthMiddleware) *ApplicabilityHandler {
	return &ApplicabilityHandler{applicability: applicability, auth: auth}
}

// RegisterRoutes registers applicability routes on the router
func (h *ApplicabilityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/requirements/{id}/applicability", h.GetResult).Methods("GET")
	router.HandleFunc("/api/requirements/{id}/applicability/rule", h.auth.RequireAuth(h.UpdateRule)).Methods("PUT")
	router.HandleFunc("/api/requirements/{id}/applicability/recalculate", h.auth.RequireAuth(h.Recalculate)).Methods("POST")
	router.HandleFunc("/api/requirements/{id}/applicability/include", h.auth.RequireAuth(h.ManualInclude)).Methods("POST")
	router.HandleFunc("/api/requirements/{id}/applicability/exclude", h.auth.RequireAuth(h.ManualExclude)).Methods("POST")
	router.HandleFunc("/api/requirements/{id}/applicability/override/{orgID}", h.auth.RequireAuth(h.RemoveOverride)).Methods("DELETE")
}

// GetResult returns the applicability projection for a requirement.
// Missing rules and profiles are valid states, so this never 404s.
func (h *ApplicabilityHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	requirementID := mux.Vars(r)["id"]

	result, err := h.applicability.GetApplicabilityResult(r.Context(), requirementID)
	if err != nil {
		respondInternalError(w, "Failed to compute applicability")
		return
	}
	respondSuccess(w, http.StatusOK, "Applicability computed", result)
}

// UpdateRule replaces the filter rules of a requirement and triggers
// recalculation.
func (h *ApplicabilityHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	requirementID := mux.Vars(r)["id"]

	var rules domain.FilterRules
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	if err := h.applicability.UpdateApplicabilityRule(r.Context(), requirementID, rules, h.userID(r)); err != nil {
		respondInternalError(w, "Failed to update applicability rule")
		return
	}
	respondSuccess(w, http.StatusOK, "Applicability rule updated", nil)
}

// Recalculate reconciles automatic mappings with the current rule.
func (h *ApplicabilityHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	requirementID := mux.Vars(r)["id"]

	if err := h.applicability.RecalculateMappings(r.Context(), requirementID); err != nil {
		respondInternalError(w, "Failed to recalculate mappings")
		return
	}
	respondSuccess(w, http.StatusOK, "Mappings recalculated", nil)
}

type manualOverrideRequest struct {
	OrganizationID string `json:"organization_id"`
	Reason         string `json:"reason"`
}

// ManualInclude adds a sticky manual inclusion.
func (h *ApplicabilityHandler) ManualInclude(w http.ResponseWriter, r *http.Request) {
	h.manualOverride(w, r, h.applicability.AddManualInclude)
}

// ManualExclude adds a sticky manual exclusion.
func (h *ApplicabilityHandler) ManualExclude(w http.ResponseWriter, r *http.Request) {
	h.manualOverride(w, r, h.applicability.AddManualExclude)
}

func (h *ApplicabilityHandler) manualOverride(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, requirementID, organizationID, reason, userID string) error) {
	requirementID := mux.Vars(r)["id"]

	var req manualOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.OrganizationID == "" {
		respondBadRequest(w, "organization_id is required")
		return
	}

	if err := apply(r.Context(), requirementID, req.OrganizationID, req.Reason, h.userID(r)); err != nil {
		respondInternalError(w, "Failed to apply manual override")
		return
	}
	respondSuccess(w, http.StatusOK, "Manual override applied", nil)
}

// RemoveOverride drops a manual override so the organization reverts to
// its rule-derived classification.
func (h *ApplicabilityHandler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.applicability.RemoveManualOverride(r.Context(), vars["id"], vars["orgID"], h.userID(r)); err != nil {
		respondInternalError(w, "Failed to remove manual override")
		return
	}
	respondSuccess(w, http.StatusOK, "Manual override removed", nil)
}

func (h *ApplicabilityHandler) userID(r *http.Request) string {
	if claims := ClaimsFrom(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}
