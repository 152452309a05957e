package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cadencehq/cadence/internal/entity"
)

type ResearchOutcome struct {
	Researched int `json:"researched"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// ResearchProcessor enriches leads with company intel before generation. It
// writes only the research fields of the lead row; pacing and rate-limit
// handling live inside the research client.
type ResearchProcessor struct {
	leads    entity.LeadRepositoryInterface
	research ResearchServiceInterface
}

func NewResearchProcessor(leads entity.LeadRepositoryInterface, research ResearchServiceInterface) *ResearchProcessor {
	return &ResearchProcessor{leads: leads, research: research}
}

// ResearchLeads runs research for the given leads sequentially. Leads without
// a company are skipped rather than failed.
func (p *ResearchProcessor) ResearchLeads(ctx context.Context, leadIDs []string) (*ResearchOutcome, error) {
	if len(leadIDs) == 0 {
		return nil, ValidationFailed([]string{"lead_ids: at least one id is required"})
	}
	if !p.research.IsConfigured() {
		return nil, InvalidState("research provider is not configured")
	}

	if err := p.leads.MarkResearching(ctx, leadIDs); err != nil {
		return nil, fmt.Errorf("mark researching: %w", err)
	}

	candidates, err := p.leads.FindWithContact(ctx, leadIDs)
	if err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}

	outcome := &ResearchOutcome{}
	for i := range candidates {
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		default:
		}
		p.researchLead(ctx, &candidates[i], outcome)
	}

	log.Printf("[research] done: %d researched, %d skipped, %d failed",
		outcome.Researched, outcome.Skipped, outcome.Failed)
	return outcome, nil
}

func (p *ResearchProcessor) researchLead(ctx context.Context, lead *entity.SendCandidate, outcome *ResearchOutcome) {
	if lead.Contact.Company == "" {
		if err := p.leads.MarkResearchSkipped(ctx, lead.ID, "contact has no company"); err != nil {
			log.Printf("[research] mark skipped %s: %v", lead.ID, err)
		}
		outcome.Skipped++
		return
	}

	result := p.research.ResearchCompany(ctx, ResearchRequest{
		Company:   lead.Contact.Company,
		JobTitle:  lead.Contact.JobTitle,
		FirstName: lead.Contact.FirstName,
	})

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "research provider returned no result"
		}
		if err := p.leads.MarkResearchFailed(ctx, lead.ID, msg); err != nil {
			log.Printf("[research] mark failed %s: %v", lead.ID, err)
		}
		outcome.Failed++
		return
	}

	data, err := json.Marshal(map[string]string{
		"summary": result.Summary,
		"source":  result.Source,
	})
	if err != nil {
		log.Printf("[research] marshal result %s: %v", lead.ID, err)
		outcome.Failed++
		return
	}

	if err := p.leads.SaveResearch(ctx, lead.ID, string(data)); err != nil {
		log.Printf("[research] save result %s: %v", lead.ID, err)
		outcome.Failed++
		return
	}
	outcome.Researched++
	log.Printf("[research] researched %s for lead %s", lead.Contact.Company, lead.ID)
}
