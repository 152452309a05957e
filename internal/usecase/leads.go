package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/entity"
	"github.com/cadencehq/cadence/internal/metrics"
)

// LeadService exposes the manual and webhook-driven lead operations: reply
// and bounce signals, and (re)queueing content generation.
type LeadService struct {
	leads  entity.LeadRepositoryInterface
	logs   entity.EmailLogRepositoryInterface
	events EventPublisherInterface
}

func NewLeadService(leads entity.LeadRepositoryInterface, logs entity.EmailLogRepositoryInterface, events EventPublisherInterface) *LeadService {
	if events == nil {
		events = noopPublisher{}
	}
	return &LeadService{leads: leads, logs: logs, events: events}
}

// MarkReplied is the sole write path for replies. It is not a claim: no
// concurrent writer contends for this transition, but the follow-up claim
// checks replied_at atomically, so racing an in-flight sweep is safe.
// Returns true when the lead was already in a terminal state (no-op).
func (s *LeadService) MarkReplied(ctx context.Context, leadID string) (bool, error) {
	lead, err := s.leads.FindByID(ctx, leadID)
	if err != nil {
		return false, NotFound("lead not found")
	}

	if lead.Status.IsTerminal() {
		return true, nil
	}

	// The initial email has not gone out yet; there is nothing to reply to.
	if lead.Status == entity.LeadPending || lead.Status == entity.LeadSending {
		return false, InvalidState("cannot mark as replied before initial email is sent")
	}

	if err := s.leads.MarkReplied(ctx, leadID); err != nil {
		return false, fmt.Errorf("mark replied: %w", err)
	}

	entry := &entity.EmailLog{
		ID:             uuid.New().String(),
		CampaignLeadID: leadID,
		ActionType:     entity.ActionReplyDetected,
		Status:         entity.LogDelivered,
		Metadata:       "{}",
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		log.Printf("[leads] append reply log for %s: %v", leadID, err)
	}

	metrics.RecordLeadReplied()
	if err := s.events.PublishLeadEvent(ctx, LeadEvent{
		Type:       EventLeadReplied,
		LeadID:     leadID,
		CampaignID: lead.CampaignID,
	}); err != nil {
		log.Printf("[leads] publish reply event for %s: %v", leadID, err)
	}

	log.Printf("[leads] lead %s marked as replied", leadID)
	return false, nil
}

// MarkBounced moves any non-terminal lead to the bounced terminal state.
func (s *LeadService) MarkBounced(ctx context.Context, leadID string) error {
	lead, err := s.leads.FindByID(ctx, leadID)
	if err != nil {
		return NotFound("lead not found")
	}

	if lead.Status.IsTerminal() {
		return nil
	}

	if err := s.leads.MarkBounced(ctx, leadID); err != nil {
		return fmt.Errorf("mark bounced: %w", err)
	}

	metrics.RecordLeadBounced()
	if err := s.events.PublishLeadEvent(ctx, LeadEvent{
		Type:       EventLeadBounced,
		LeadID:     leadID,
		CampaignID: lead.CampaignID,
	}); err != nil {
		log.Printf("[leads] publish bounce event for %s: %v", leadID, err)
	}

	log.Printf("[leads] lead %s marked as bounced", leadID)
	return nil
}

// QueueGeneration resets the given leads to queued and clears previously
// generated content, so the generator sweep picks them up fresh.
func (s *LeadService) QueueGeneration(ctx context.Context, leadIDs []string) (int64, error) {
	if len(leadIDs) == 0 {
		return 0, ValidationFailed([]string{"lead_ids: at least one id is required"})
	}
	return s.leads.QueueGeneration(ctx, leadIDs)
}

// Regenerate queues a single lead for regeneration.
func (s *LeadService) Regenerate(ctx context.Context, leadID string) error {
	if _, err := s.leads.FindByID(ctx, leadID); err != nil {
		return NotFound("lead not found")
	}
	_, err := s.leads.QueueGeneration(ctx, []string{leadID})
	return err
}

// RetryFailedGeneration re-queues every lead in the campaign whose
// generation failed.
func (s *LeadService) RetryFailedGeneration(ctx context.Context, campaignID string) (int, error) {
	ids, err := s.leads.ListFailedGeneration(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("list failed generation: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := s.leads.QueueGeneration(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// UpdateGeneratedContent applies a user edit and marks the content ready for
// sending.
func (s *LeadService) UpdateGeneratedContent(ctx context.Context, leadID, subject, body, followUpSubject, followUpBody string) error {
	if _, err := s.leads.FindByID(ctx, leadID); err != nil {
		return NotFound("lead not found")
	}
	return s.leads.SaveGeneratedContent(ctx, leadID, subject, body, followUpSubject, followUpBody)
}

func (s *LeadService) Get(ctx context.Context, leadID string) (*entity.CampaignLead, error) {
	lead, err := s.leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, NotFound("lead not found")
	}
	return lead, nil
}

func (s *LeadService) Logs(ctx context.Context, leadID string) ([]entity.EmailLog, error) {
	return s.logs.ListByLead(ctx, leadID)
}
