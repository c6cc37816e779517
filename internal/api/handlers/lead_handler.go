package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// LeadHandler exposes the CRM to signed-in staff.
type LeadHandler struct {
	leads  core.LeadStore
	logger *slog.Logger
}

func NewLeadHandler(leads core.LeadStore, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, logger: logger}
}

func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lead, err := h.leads.GetLead(r.Context(), id)
	if errors.Is(err, core.ErrLeadNotFound) {
		writeError(w, http.StatusNotFound, "No lead found with ID: "+id)
		return
	}
	if err != nil {
		h.logger.Error("lead lookup failed", "lead_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "CRM unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// ListLeads filters by exactly one of name, status or counselor.
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		leads []models.LeadRecord
		err   error
	)
	switch {
	case q.Get("name") != "":
		leads, err = h.leads.SearchByName(r.Context(), q.Get("name"))
	case q.Get("status") != "":
		leads, err = h.leads.ListByStatus(r.Context(), q.Get("status"))
	case q.Get("counselor") != "":
		leads, err = h.leads.ListByCounselor(r.Context(), q.Get("counselor"))
	default:
		writeError(w, http.StatusBadRequest, "one of name, status or counselor is required")
		return
	}
	if err != nil {
		h.logger.Error("lead search failed", "query", r.URL.RawQuery, "error", err)
		writeError(w, http.StatusBadGateway, "CRM unavailable")
		return
	}
	if leads == nil {
		leads = []models.LeadRecord{}
	}
	writeJSON(w, http.StatusOK, leads)
}

type updateLeadRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type updateLeadResponse struct {
	ID        string `json:"id"`
	OldStatus string `json:"old_status"`
	Status    string `json:"status"`
}

func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	old, err := h.leads.UpdateStatus(r.Context(), id, req.Status, strings.TrimSpace(req.Notes))
	if errors.Is(err, core.ErrLeadNotFound) {
		writeError(w, http.StatusNotFound, "No lead found with ID: "+id)
		return
	}
	if err != nil {
		h.logger.Error("lead update failed", "lead_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "CRM unavailable")
		return
	}
	h.logger.Info("lead status updated", "lead_id", id, "from", old, "to", req.Status)
	writeJSON(w, http.StatusOK, updateLeadResponse{ID: id, OldStatus: old, Status: req.Status})
}
