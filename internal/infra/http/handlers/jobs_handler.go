package handlers

import (
	"net/http"

	"github.com/cadencehq/cadence/internal/usecase"
)

// JobsHandler triggers the background sweeps on demand, ahead of their
// tickers. A trigger that overlaps a running sweep is dropped by the sweep's
// own single-flight guard.
type JobsHandler struct {
	processor *usecase.CampaignProcessor
	generator *usecase.EmailGenerator
}

func NewJobsHandler(processor *usecase.CampaignProcessor, generator *usecase.EmailGenerator) *JobsHandler {
	return &JobsHandler{processor: processor, generator: generator}
}

func (h *JobsHandler) RunProcessor(w http.ResponseWriter, r *http.Request) {
	h.processor.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *JobsHandler) RunGenerator(w http.ResponseWriter, r *http.Request) {
	h.generator.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
