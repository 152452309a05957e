package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cadencehq/cadence/internal/usecase"
)

type LeadHandler struct {
	leads *usecase.LeadService
}

func NewLeadHandler(leads *usecase.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Logs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.leads.Logs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// SimulateReply marks the lead as replied, the same path a provider webhook
// takes. Useful for demos and manual reply tracking.
func (h *LeadHandler) SimulateReply(w http.ResponseWriter, r *http.Request) {
	alreadyTerminal, err := h.leads.MarkReplied(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"already_terminal": alreadyTerminal,
	})
}

func (h *LeadHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if err := h.leads.Regenerate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type bulkGenerateRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

func (h *LeadHandler) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req bulkGenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	queued, err := h.leads.QueueGeneration(r.Context(), req.LeadIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"queued":  queued,
	})
}

type updateContentRequest struct {
	Subject         string `json:"subject"`
	Body            string `json:"body"`
	FollowUpSubject string `json:"follow_up_subject,omitempty"`
	FollowUpBody    string `json:"follow_up_body,omitempty"`
}

// UpdateContent applies a manual edit to the generated emails and marks them
// ready.
func (h *LeadHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req updateContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Subject == "" || req.Body == "" {
		writeError(w, usecase.ValidationFailed([]string{"subject and body are required"}))
		return
	}

	err := h.leads.UpdateGeneratedContent(r.Context(),
		chi.URLParam(r, "id"), req.Subject, req.Body, req.FollowUpSubject, req.FollowUpBody)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
