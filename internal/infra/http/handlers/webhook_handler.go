package handlers

import (
	"net/http"

	"github.com/cadencehq/cadence/internal/usecase"
)

// WebhookHandler receives provider delivery notifications over HTTP. The same
// events can arrive through the message queue; both paths converge on the
// lead service.
type WebhookHandler struct {
	leads *usecase.LeadService
}

func NewWebhookHandler(leads *usecase.LeadService) *WebhookHandler {
	return &WebhookHandler{leads: leads}
}

type providerWebhook struct {
	Type   string `json:"type"` // reply, bounce
	LeadID string `json:"lead_id"`
	Email  string `json:"email,omitempty"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event providerWebhook
	if !decodeBody(w, r, &event) {
		return
	}
	if event.LeadID == "" {
		writeError(w, usecase.ValidationFailed([]string{"lead_id: is required"}))
		return
	}

	switch event.Type {
	case "reply":
		if _, err := h.leads.MarkReplied(r.Context(), event.LeadID); err != nil {
			writeError(w, err)
			return
		}
	case "bounce":
		if err := h.leads.MarkBounced(r.Context(), event.LeadID); err != nil {
			writeError(w, err)
			return
		}
	default:
		writeError(w, usecase.ValidationFailed([]string{"type: must be reply or bounce"}))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
