package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/entity"
	"github.com/cadencehq/cadence/internal/metrics"
)

const defaultFollowUpBody = "Just following up on my previous email. Would love to connect!"

type ProcessorConfig struct {
	BatchSize  int
	Interval   time.Duration
	MaxRetries int
	// SendDelay spaces out consecutive dispatch calls within one sweep to
	// stay under provider rate limits.
	SendDelay time.Duration
}

// CampaignProcessor drives the lead lifecycle: one sweep runs the
// initial-send pass over every active campaign, then the follow-up pass.
// Sweeps are single-flight; overlapping requests are dropped, not queued.
type CampaignProcessor struct {
	campaigns entity.CampaignRepositoryInterface
	leads     entity.LeadRepositoryInterface
	logs      entity.EmailLogRepositoryInterface
	mailer    MailerInterface
	ai        AIServiceInterface
	events    EventPublisherInterface
	cfg       ProcessorConfig

	sweepMu sync.Mutex

	mu     sync.Mutex
	stopCh chan struct{}
}

func NewCampaignProcessor(
	campaigns entity.CampaignRepositoryInterface,
	leads entity.LeadRepositoryInterface,
	logs entity.EmailLogRepositoryInterface,
	mailer MailerInterface,
	ai AIServiceInterface,
	events EventPublisherInterface,
	cfg ProcessorConfig,
) *CampaignProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &CampaignProcessor{
		campaigns: campaigns,
		leads:     leads,
		logs:      logs,
		mailer:    mailer,
		ai:        ai,
		events:    events,
		cfg:       cfg,
	}
}

// Start launches the sweep loop. Calling Start on a running processor is a
// no-op.
func (p *CampaignProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stopCh != nil {
		p.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.mu.Unlock()

	log.Printf("[processor] starting (interval %s, batch %d)", p.cfg.Interval, p.cfg.BatchSize)

	go func() {
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		p.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				p.RunOnce(ctx)
			}
		}
	}()
}

// Stop prevents further sweeps from being scheduled. An in-flight sweep is
// not aborted.
func (p *CampaignProcessor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh == nil {
		return
	}
	close(p.stopCh)
	p.stopCh = nil
	log.Printf("[processor] stopped")
}

// RunOnce executes a single sweep synchronously. If a sweep is already
// running the call returns immediately.
func (p *CampaignProcessor) RunOnce(ctx context.Context) {
	if !p.sweepMu.TryLock() {
		return
	}
	defer p.sweepMu.Unlock()
	defer metrics.ObserveSweep("processor", time.Now())

	if err := p.processInitialEmails(ctx); err != nil {
		log.Printf("[processor] initial pass error: %v", err)
	}
	if err := p.processFollowUps(ctx); err != nil {
		log.Printf("[processor] follow-up pass error: %v", err)
	}
}

func (p *CampaignProcessor) processInitialEmails(ctx context.Context) error {
	campaigns, err := p.campaigns.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active campaigns: %w", err)
	}

	for i := range campaigns {
		if err := p.processCampaignInitialEmails(ctx, &campaigns[i]); err != nil {
			log.Printf("[processor] campaign %s: %v", campaigns[i].ID, err)
		}
	}
	return nil
}

func (p *CampaignProcessor) processCampaignInitialEmails(ctx context.Context, campaign *entity.Campaign) error {
	sentToday, err := p.logs.CountInitialSentToday(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("count sent today: %w", err)
	}

	remaining := campaign.DailyLimit - sentToday
	if remaining <= 0 {
		log.Printf("[processor] campaign %q: daily limit reached", campaign.Name)
		return nil
	}

	leads, err := p.leads.FindPending(ctx, campaign.ID, min(remaining, p.cfg.BatchSize))
	if err != nil {
		return fmt.Errorf("find pending leads: %w", err)
	}

	for i := range leads {
		if i > 0 {
			p.pause(ctx)
		}
		p.sendInitialEmail(ctx, campaign, &leads[i])
	}
	return nil
}

func (p *CampaignProcessor) sendInitialEmail(ctx context.Context, campaign *entity.Campaign, lead *entity.SendCandidate) {
	defer p.recoverLead(ctx, lead.ID, entity.ActionInitialEmail)

	claimed, err := p.leads.ClaimStatus(ctx, lead.ID, entity.LeadPending, entity.LeadSending)
	if err != nil {
		log.Printf("[processor] claim lead %s: %v", lead.ID, err)
		return
	}
	if !claimed {
		// Another actor owns the transition or the lead moved on.
		return
	}

	subject, body := p.resolveInitialContent(ctx, campaign, lead)

	result := p.mailer.Send(ctx, SendRequest{
		To:        lead.Contact.Email,
		FromName:  campaign.FromName,
		FromEmail: campaign.FromEmail,
		Subject:   subject,
		BodyHTML:  body,
	})
	if !result.Success {
		p.handleFailure(ctx, lead.ID, entity.ActionInitialEmail, result.Error)
		return
	}

	next := entity.LeadCompleted
	var followUpAt *time.Time
	if campaign.FollowUpEnabled {
		next = entity.LeadWaitingFollowUp
		t := time.Now().Add(time.Duration(campaign.FollowUpDelayMinutes) * time.Minute)
		followUpAt = &t
	}

	if err := p.leads.MarkInitialSent(ctx, lead.ID, next, followUpAt, subject, body); err != nil {
		log.Printf("[processor] mark sent %s: %v", lead.ID, err)
	}
	p.appendLog(ctx, lead.ID, entity.ActionInitialEmail, entity.LogSent, result.MessageID, "")
	metrics.RecordEmailSent(string(entity.ActionInitialEmail))
	p.publish(ctx, LeadEvent{
		Type:       EventEmailSent,
		LeadID:     lead.ID,
		CampaignID: campaign.ID,
		Email:      lead.Contact.Email,
		MessageID:  result.MessageID,
	})

	log.Printf("[processor] initial email sent to %s", lead.Contact.Email)
}

// resolveInitialContent prefers pre-generated ready content; on-the-fly AI
// generation is only a fallback, and plain substitution the fallback of last
// resort.
func (p *CampaignProcessor) resolveInitialContent(ctx context.Context, campaign *entity.Campaign, lead *entity.SendCandidate) (string, string) {
	subject := campaign.SubjectTemplate
	body := campaign.BodyTemplate

	if lead.GenerationStatus == entity.GenerationReady && lead.GeneratedBody != "" {
		body = lead.GeneratedBody
		if lead.GeneratedSubject != "" {
			return lead.GeneratedSubject, body
		}
		return ReplaceTemplateVars(subject, lead.Contact), body
	}

	if campaign.AIPrompt != "" {
		log.Printf("[processor] no pre-generated email for %s, generating now", lead.Contact.Email)
		result := p.ai.GenerateEmail(ctx, GenerateRequest{
			SystemPrompt: campaign.AIPrompt,
			Contact:      generateContact(lead.Contact),
			Template:     body,
			Research:     researchSummary(lead.ResearchData),
		})
		if result.Success && result.Content != "" {
			body = result.Content
			if result.Subject != "" {
				return result.Subject, body
			}
			return ReplaceTemplateVars(subject, lead.Contact), body
		}
	}

	return ReplaceTemplateVars(subject, lead.Contact), ReplaceTemplateVars(body, lead.Contact)
}

func (p *CampaignProcessor) processFollowUps(ctx context.Context) error {
	leads, err := p.leads.FindDueFollowUps(ctx, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("find due follow-ups: %w", err)
	}

	for i := range leads {
		if i > 0 {
			p.pause(ctx)
		}
		p.sendFollowUp(ctx, &leads[i])
	}
	return nil
}

func (p *CampaignProcessor) sendFollowUp(ctx context.Context, lead *entity.FollowUpCandidate) {
	defer p.recoverLead(ctx, lead.ID, entity.ActionFollowUp)

	// The claim re-checks replied_at IS NULL: a reply that landed between the
	// selection query and this write makes the claim fail and the follow-up
	// is skipped.
	claimed, err := p.leads.ClaimFollowUpSend(ctx, lead.ID)
	if err != nil {
		log.Printf("[processor] claim follow-up %s: %v", lead.ID, err)
		return
	}
	if !claimed {
		log.Printf("[processor] lead %s not claimable for follow-up (may have replied)", lead.ID)
		return
	}

	subject, body := resolveFollowUpContent(lead)

	result := p.mailer.Send(ctx, SendRequest{
		To:        lead.Contact.Email,
		FromName:  lead.FromName,
		FromEmail: lead.FromEmail,
		Subject:   subject,
		BodyHTML:  body,
	})
	if !result.Success {
		p.handleFailure(ctx, lead.ID, entity.ActionFollowUp, result.Error)
		return
	}

	if err := p.leads.MarkFollowUpSent(ctx, lead.ID, subject, body); err != nil {
		log.Printf("[processor] mark follow-up sent %s: %v", lead.ID, err)
	}
	p.appendLog(ctx, lead.ID, entity.ActionFollowUp, entity.LogSent, result.MessageID, "")
	metrics.RecordEmailSent(string(entity.ActionFollowUp))
	p.publish(ctx, LeadEvent{
		Type:       EventEmailSent,
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		Email:      lead.Contact.Email,
		MessageID:  result.MessageID,
	})

	log.Printf("[processor] follow-up sent to %s", lead.Contact.Email)
}

func resolveFollowUpContent(lead *entity.FollowUpCandidate) (string, string) {
	subject := lead.FollowUpSubject
	body := lead.FollowUpBody

	if lead.GenerationStatus == entity.GenerationReady && lead.GeneratedFollowUpBody != "" {
		body = lead.GeneratedFollowUpBody
		if lead.GeneratedFollowUpSubject != "" {
			subject = lead.GeneratedFollowUpSubject
		}
	}

	if subject == "" {
		subject = "Re: " + lead.GeneratedSubject
	}
	if body == "" {
		body = defaultFollowUpBody
	}

	return ReplaceTemplateVars(subject, lead.Contact), ReplaceTemplateVars(body, lead.Contact)
}

// handleFailure is shared by both passes: bump retry_count, fail permanently
// past the retry budget, otherwise return the lead to its retryable state.
// Every attempt leaves a failed audit row either way.
func (p *CampaignProcessor) handleFailure(ctx context.Context, leadID string, action entity.EmailAction, sendErr string) {
	lead, err := p.leads.FindByID(ctx, leadID)
	if err != nil {
		log.Printf("[processor] load lead %s after failure: %v", leadID, err)
		return
	}

	retries := lead.RetryCount + 1
	status := entity.LeadFailed
	if retries < p.cfg.MaxRetries {
		if action == entity.ActionInitialEmail {
			status = entity.LeadPending
		} else {
			status = entity.LeadWaitingFollowUp
		}
	}

	if err := p.leads.RecordFailure(ctx, leadID, status, sendErr, retries); err != nil {
		log.Printf("[processor] record failure %s: %v", leadID, err)
	}
	p.appendLog(ctx, leadID, action, entity.LogFailed, "", sendErr)
	metrics.RecordEmailFailure(string(action))
	p.publish(ctx, LeadEvent{
		Type:       EventEmailFailed,
		LeadID:     leadID,
		CampaignID: lead.CampaignID,
		Error:      sendErr,
	})

	log.Printf("[processor] %s failed for lead %s (retry %d): %s", action, leadID, retries, sendErr)
}

func (p *CampaignProcessor) appendLog(ctx context.Context, leadID string, action entity.EmailAction, status entity.EmailLogStatus, messageID, errMsg string) {
	entry := &entity.EmailLog{
		ID:                uuid.New().String(),
		CampaignLeadID:    leadID,
		ActionType:        action,
		Status:            status,
		ProviderMessageID: messageID,
		ErrorMessage:      errMsg,
		Metadata:          "{}",
	}
	if err := p.logs.Append(ctx, entry); err != nil {
		log.Printf("[processor] append email log for %s: %v", leadID, err)
	}
}

func (p *CampaignProcessor) publish(ctx context.Context, event LeadEvent) {
	if err := p.events.PublishLeadEvent(ctx, event); err != nil {
		log.Printf("[processor] publish %s for %s: %v", event.Type, event.LeadID, err)
	}
}

// recoverLead isolates each lead: a panic while processing one lead is
// converted into a failed-state write instead of aborting the sweep.
func (p *CampaignProcessor) recoverLead(ctx context.Context, leadID string, action entity.EmailAction) {
	if r := recover(); r != nil {
		p.handleFailure(ctx, leadID, action, fmt.Sprintf("unexpected error: %v", r))
	}
}

func (p *CampaignProcessor) pause(ctx context.Context) {
	if p.cfg.SendDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.SendDelay):
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishLeadEvent(context.Context, LeadEvent) error { return nil }
