package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cadencehq/cadence/internal/usecase"
)

type CampaignHandler struct {
	campaigns *usecase.CampaignService
	research  *usecase.ResearchProcessor
	leads     *usecase.LeadService
}

func NewCampaignHandler(campaigns *usecase.CampaignService, research *usecase.ResearchProcessor, leads *usecase.LeadService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, research: research, leads: leads}
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateCampaignInput
	if !decodeBody(w, r, &input) {
		return
	}

	campaign, err := h.campaigns.Create(r.Context(), userID(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, stats, err := h.campaigns.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"campaign": campaign,
		"stats":    stats,
	})
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateCampaignInput
	if !decodeBody(w, r, &input) {
		return
	}

	campaign, err := h.campaigns.Update(r.Context(), userID(r), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	leadCount, err := h.campaigns.Start(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"lead_count": leadCount,
	})
}

func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Pause(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type addLeadsRequest struct {
	ContactIDs []string `json:"contact_ids"`
}

func (h *CampaignHandler) AddLeads(w http.ResponseWriter, r *http.Request) {
	var req addLeadsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.campaigns.AddLeads(r.Context(), userID(r), chi.URLParam(r, "id"), req.ContactIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CampaignHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.campaigns.ListLeads(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *CampaignHandler) RetryFailedGeneration(w http.ResponseWriter, r *http.Request) {
	count, err := h.leads.RetryFailedGeneration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"queued":  count,
	})
}

type researchRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// Research runs company research synchronously for the given leads. The
// research client paces itself against the provider rate limit.
func (h *CampaignHandler) Research(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.research.ResearchLeads(r.Context(), req.LeadIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
