package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/usecase"
)

// OrganizationHandler exposes organization CRUD over HTTP.
type OrganizationHandler struct {
	orgs *usecase.OrganizationUseCase
	auth *AuthMiddleware
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgs *usecase.OrganizationUseCase, auth *AuthMiddleware) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, auth: auth}
}

// RegisterRoutes registers organization routes on the router
func (h *OrganizationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/organizations", h.List).Methods("GET")
	router.HandleFunc("/api/organizations", h.auth.RequireAuth(h.Create)).Methods("POST")
	router.HandleFunc("/api/organizations/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/organizations/{id}", h.auth.RequireAuth(h.Update)).Methods("PUT")
	router.HandleFunc("/api/organizations/{id}", h.auth.RequireAuth(h.Delete)).Methods("DELETE")
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrganizationFilter{}
	q := r.URL.Query()

	if v := q.Get("tenant_id"); v != "" {
		filter.TenantID = &v
	}
	if v := q.Get("name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	orgs, count, err := h.orgs.ListOrganizations(r.Context(), filter)
	if err != nil {
		respondInternalError(w, "Failed to list organizations")
		return
	}
	respondSuccess(w, http.StatusOK, "Organizations retrieved", map[string]interface{}{
		"organizations": orgs,
		"total":         count,
	})
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgs.GetOrganization(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondNotFound(w, "Organization not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Organization retrieved", org)
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if claims := ClaimsFrom(r.Context()); claims != nil {
		req.CreatedBy = claims.UserID
		if req.TenantID == "" {
			req.TenantID = claims.TenantID
		}
	}

	org, err := h.orgs.CreateOrganization(r.Context(), req)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	respondSuccess(w, http.StatusCreated, "Organization created", org)
}

type updateOrganizationRequest struct {
	Name    string                      `json:"name"`
	Profile *domain.OrganizationProfile `json:"profile,omitempty"`
}

func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	org, err := h.orgs.UpdateOrganization(r.Context(), mux.Vars(r)["id"], req.Name, req.Profile, userID)
	if err != nil {
		respondNotFound(w, "Organization not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Organization updated", org)
}

func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	if err := h.orgs.DeleteOrganization(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		respondNotFound(w, "Organization not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Organization deleted", nil)
}
