package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/usecase"
)

// EvidenceHandler exposes evidence CRUD over HTTP.
type EvidenceHandler struct {
	evidence *usecase.EvidenceUseCase
	auth     *AuthMiddleware
}

// NewEvidenceHandler creates a new evidence handler
func NewEvidenceHandler(evidence *usecase.EvidenceUseCase, auth *AuthMiddleware) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence, auth: auth}
}

// RegisterRoutes registers evidence routes on the router
func (h *EvidenceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/evidence", h.List).Methods("GET")
	router.HandleFunc("/api/evidence", h.auth.RequireAuth(h.Create)).Methods("POST")
	router.HandleFunc("/api/evidence/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/evidence/{id}/review", h.auth.RequireAuth(h.Review)).Methods("POST")
	router.HandleFunc("/api/evidence/{id}", h.auth.RequireAuth(h.Delete)).Methods("DELETE")
}

func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.EvidenceFilter{}
	q := r.URL.Query()

	if v := q.Get("requirement_id"); v != "" {
		filter.RequirementID = &v
	}
	if v := q.Get("organization_id"); v != "" {
		filter.OrganizationID = &v
	}
	if v := q.Get("status"); v != "" {
		s := domain.EvidenceStatus(v)
		filter.Status = &s
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	items, err := h.evidence.ListEvidence(r.Context(), filter)
	if err != nil {
		respondInternalError(w, "Failed to list evidence")
		return
	}
	respondSuccess(w, http.StatusOK, "Evidence retrieved", items)
}

func (h *EvidenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.evidence.GetEvidence(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondNotFound(w, "Evidence not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Evidence retrieved", item)
}

func (h *EvidenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if claims := ClaimsFrom(r.Context()); claims != nil {
		req.UploadedBy = claims.UserID
		if req.TenantID == "" {
			req.TenantID = claims.TenantID
		}
	}

	item, err := h.evidence.CreateEvidence(r.Context(), req)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	respondSuccess(w, http.StatusCreated, "Evidence created", item)
}

type reviewEvidenceRequest struct {
	Status domain.EvidenceStatus `json:"status"`
}

func (h *EvidenceHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	item, err := h.evidence.ReviewEvidence(r.Context(), mux.Vars(r)["id"], req.Status, userID)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	respondSuccess(w, http.StatusOK, "Evidence reviewed", item)
}

func (h *EvidenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID
	}

	if err := h.evidence.DeleteEvidence(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		respondNotFound(w, "Evidence not found")
		return
	}
	respondSuccess(w, http.StatusOK, "Evidence deleted", nil)
}
