package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/usecase"
)

// RequirementHandler exposes requirement CRUD over HTTP.
type RequirementHandler struct {
	requirements *usecase.RequirementUseCase
	auth         *AuthMiddleware
}

// NewRequirementHandler creates a new requirement handler
func NewRequirementHandler(requirements *usecase.RequirementUseCase, auth *AuthMiddleware) *RequirementHandler {
	return &RequirementHandler{requirements: requirements, auth: auth}
}

// RegisterRoutes registers requirement routes on the router
func (h *RequirementHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/requirements", h.List).Methods("GET")
	router.HandleFunc("/api/requirements", h.auth.RequireAuth(h.Create)).Methods("POST")
	router.HandleFunc("/api/requirements/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/requirements/{id}", h.auth.RequireAuth(h.Update)).Methods("PUT")
	router.HandleFunc("/api/requirements/{id}", h.auth.RequireAuth(h.Delete)).Methods("DELETE")
}

func (h *RequirementHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.RequirementFilter{}
	q := r.URL.Query()

	if v := q.Get("tenant_id"); v != "" {
		filter.TenantID = &v
	}
	if v := q.Get("status"); v != "" {
		s := domain.RequirementStatus(v)
		filter.Status = &s
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

	requirements, err := h.requirements.ListRequirements(r.Context(), filter)
	if err != nil {
		respondInternalError(w, "Failed to list requirements")
		return
	}
	respondSuccess(w, http.StatusOK, "Requirements retrieved", requirements)
}

func (h *RequirementHandler) Get(w http.ResponseWriter, r *http.Request) {
	requirement, err := h.requirements.GetRequirement(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondNotFound(w, "Requirement not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Requirement retrieved", requirement)
}

func (h *RequirementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateRequirementRequest
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

	requirement, err := h.requirements.CreateRequirement(r.Context(), req)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	respondSuccess(w, http.StatusCreated, "Requirement created", requirement)
}

func (h *RequirementHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req usecase.UpdateRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	requirement, err := h.requirements.UpdateRequirement(r.Context(), mux.Vars(r)["id"], req, userID)
	if err != nil {
		respondNotFound(w, "Requirement not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Requirement updated", requirement)
}

func (h *RequirementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	if err := h.requirements.DeleteRequirement(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		respondNotFound(w, "Requirement not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Requirement deleted", nil)
}
