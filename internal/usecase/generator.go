package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cadencehq/cadence/internal/entity"
	"github.com/cadencehq/cadence/internal/metrics"
)

type GeneratorConfig struct {
	BatchSize int
	Interval  time.Duration
	// MaxAttempts bounds retries of retryable AI errors within a single
	// generate call.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	// InterCallDelay spaces out AI calls between consecutive leads.
	InterCallDelay time.Duration
	// StuckTimeout is how long a lead may sit in "generating" before the
	// reaper forces it to failed.
	StuckTimeout time.Duration
}

// EmailGenerator produces ready-to-send subject/body pairs ahead of send
// time. It never touches send status; its side effects are confined to the
// generation fields of the lead row.
type EmailGenerator struct {
	leads entity.LeadRepositoryInterface
	ai    AIServiceInterface
	cfg   GeneratorConfig

	sweepMu sync.Mutex

	mu     sync.Mutex
	stopCh chan struct{}
}

func NewEmailGenerator(leads entity.LeadRepositoryInterface, ai AIServiceInterface, cfg GeneratorConfig) *EmailGenerator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	if cfg.StuckTimeout <= 0 {
		cfg.StuckTimeout = 10 * time.Minute
	}
	return &EmailGenerator{leads: leads, ai: ai, cfg: cfg}
}

func (g *EmailGenerator) Start(ctx context.Context) {
	g.mu.Lock()
	if g.stopCh != nil {
		g.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	g.stopCh = stopCh
	g.mu.Unlock()

	log.Printf("[generator] starting (interval %s, batch %d)", g.cfg.Interval, g.cfg.BatchSize)

	go func() {
		ticker := time.NewTicker(g.cfg.Interval)
		defer ticker.Stop()

		g.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				g.RunOnce(ctx)
			}
		}
	}()
}

func (g *EmailGenerator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopCh == nil {
		return
	}
	close(g.stopCh)
	g.stopCh = nil
	log.Printf("[generator] stopped")
}

// RunOnce reaps stuck leads, then generates content for one batch of queued
// leads. Overlapping calls are dropped.
func (g *EmailGenerator) RunOnce(ctx context.Context) {
	if !g.sweepMu.TryLock() {
		return
	}
	defer g.sweepMu.Unlock()
	defer metrics.ObserveSweep("generator", time.Now())

	g.reapStuck(ctx)

	leads, err := g.leads.FindGenerationQueued(ctx, g.cfg.BatchSize)
	if err != nil {
		log.Printf("[generator] find queued leads: %v", err)
		return
	}

	for i := range leads {
		if i > 0 {
			g.pause(ctx)
		}
		g.generateForLead(ctx, &leads[i])
	}
}

// reapStuck fails any lead wedged in "generating" past the timeout, so a
// crashed worker cannot lock a lead up forever.
func (g *EmailGenerator) reapStuck(ctx context.Context) {
	n, err := g.leads.FailStuckGenerating(ctx, g.cfg.StuckTimeout)
	if err != nil {
		log.Printf("[generator] reap stuck leads: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[generator] failed %d lead(s) stuck in generating", n)
	}
}

func (g *EmailGenerator) generateForLead(ctx context.Context, lead *entity.GenerationCandidate) {
	defer func() {
		if r := recover(); r != nil {
			g.fail(ctx, lead.ID, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	claimed, err := g.leads.ClaimGeneration(ctx, lead.ID, entity.GenerationQueued, entity.GenerationGenerating)
	if err != nil {
		log.Printf("[generator] claim lead %s: %v", lead.ID, err)
		return
	}
	if !claimed {
		return
	}

	log.Printf("[generator] generating emails for %s", lead.Contact.Email)

	contact := generateContact(lead.Contact)
	research := researchSummary(lead.ResearchData)

	subject := ReplaceTemplateVars(lead.SubjectTemplate, lead.Contact)
	body := ReplaceTemplateVars(lead.BodyTemplate, lead.Contact)

	if lead.AIPrompt != "" {
		result := g.callAI(ctx, GenerateRequest{
			SystemPrompt: lead.AIPrompt,
			Contact:      contact,
			Template:     lead.BodyTemplate,
			Research:     research,
		})
		if !result.Success || result.Content == "" {
			msg := result.Error
			if msg == "" {
				msg = "no content generated"
			}
			g.fail(ctx, lead.ID, msg)
			return
		}
		body = result.Content
		if result.Subject != "" {
			subject = result.Subject
		}
	}

	var followUpSubject, followUpBody string
	if lead.FollowUpEnabled {
		followUpSubject, followUpBody = g.generateFollowUp(ctx, lead, contact, research, subject)
	}

	if err := g.leads.SaveGeneratedContent(ctx, lead.ID, subject, body, followUpSubject, followUpBody); err != nil {
		log.Printf("[generator] save content %s: %v", lead.ID, err)
		return
	}
	metrics.RecordGeneration("ready")
	log.Printf("[generator] generated emails for %s", lead.Contact.Email)
}

// generateFollowUp never fails the whole generation: an AI error here falls
// back to template substitution.
func (g *EmailGenerator) generateFollowUp(ctx context.Context, lead *entity.GenerationCandidate, contact GenerateContact, research, initialSubject string) (string, string) {
	body := lead.FollowUpBody
	if lead.FollowUpAIPrompt != "" {
		template := lead.FollowUpBody
		if template == "" {
			template = defaultFollowUpBody
		}
		result := g.callAI(ctx, GenerateRequest{
			SystemPrompt: lead.FollowUpAIPrompt,
			Contact:      contact,
			Template:     template,
			Research:     research,
		})
		if result.Success && result.Content != "" {
			body = result.Content
		} else if body != "" {
			body = ReplaceTemplateVars(body, lead.Contact)
		}
	} else if body != "" {
		body = ReplaceTemplateVars(body, lead.Contact)
	}

	subject := lead.FollowUpSubject
	if subject != "" {
		subject = ReplaceTemplateVars(subject, lead.Contact)
	} else {
		subject = "Re: " + initialSubject
	}

	return subject, body
}

// callAI retries retryable failures with exponential backoff, bounded by
// MaxAttempts. Non-retryable failures return immediately.
func (g *EmailGenerator) callAI(ctx context.Context, req GenerateRequest) GenerateResult {
	delay := g.cfg.RetryBaseDelay
	var result GenerateResult

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		result = g.ai.GenerateEmail(ctx, req)
		if result.Success || !result.Retryable {
			return result
		}
		if attempt == g.cfg.MaxAttempts {
			break
		}
		log.Printf("[generator] retryable AI error (attempt %d/%d), backing off %s: %s",
			attempt, g.cfg.MaxAttempts, delay, result.Error)
		select {
		case <-ctx.Done():
			return result
		case <-time.After(delay):
		}
		delay *= 2
	}
	return result
}

func (g *EmailGenerator) fail(ctx context.Context, leadID, message string) {
	if err := g.leads.MarkGenerationFailed(ctx, leadID, message); err != nil {
		log.Printf("[generator] mark failed %s: %v", leadID, err)
	}
	metrics.RecordGeneration("failed")
	log.Printf("[generator] generation failed for lead %s: %s", leadID, message)
}

func (g *EmailGenerator) pause(ctx context.Context) {
	if g.cfg.InterCallDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(g.cfg.InterCallDelay):
	}
}

func generateContact(c entity.ContactInfo) GenerateContact {
	return GenerateContact{
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Company:   c.Company,
		JobTitle:  c.JobTitle,
		Headline:  c.Headline,
	}
}

// researchSummary extracts the stored summary string from the research JSON
// blob, if any.
func researchSummary(data string) string {
	if data == "" {
		return ""
	}
	var parsed struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return ""
	}
	return parsed.Summary
}
