package entity

import (
	"context"
	"time"
)

// LeadStatus is the send-side state of a campaign lead. Transitions away from
// a shared state go through the repository claim methods only.
type LeadStatus string

const (
	LeadPending         LeadStatus = "pending"
	LeadSending         LeadStatus = "sending"
	LeadSent            LeadStatus = "sent"
	LeadWaitingFollowUp LeadStatus = "waiting_follow_up"
	LeadSendingFollowUp LeadStatus = "sending_follow_up"
	LeadFollowUpSent    LeadStatus = "follow_up_sent"
	LeadCompleted       LeadStatus = "completed"
	LeadReplied         LeadStatus = "replied"
	LeadBounced         LeadStatus = "bounced"
	LeadFailed          LeadStatus = "failed"
)

// IsTerminal reports whether the engine makes no further transitions from s.
func (s LeadStatus) IsTerminal() bool {
	switch s {
	case LeadCompleted, LeadReplied, LeadBounced, LeadFailed:
		return true
	}
	return false
}

// GenerationStatus tracks content generation independently of send status.
type GenerationStatus string

const (
	GenerationNotStarted GenerationStatus = "not_started"
	GenerationQueued     GenerationStatus = "queued"
	GenerationGenerating GenerationStatus = "generating"
	GenerationReady      GenerationStatus = "ready"
	GenerationFailed     GenerationStatus = "failed"
)

type ResearchStatus string

const (
	ResearchNotStarted  ResearchStatus = "not_started"
	ResearchInProgress  ResearchStatus = "researching"
	ResearchComplete    ResearchStatus = "complete"
	ResearchSkipped     ResearchStatus = "skipped"
	ResearchFailedState ResearchStatus = "failed"
)

type CampaignLead struct {
	ID                       string           `json:"id"`
	CampaignID               string           `json:"campaign_id"`
	ContactID                string           `json:"contact_id"`
	Status                   LeadStatus       `json:"status"`
	GenerationStatus         GenerationStatus `json:"generation_status"`
	EmailSentAt              *time.Time       `json:"email_sent_at,omitempty"`
	FollowUpScheduledFor     *time.Time       `json:"follow_up_scheduled_for,omitempty"`
	FollowUpSentAt           *time.Time       `json:"follow_up_sent_at,omitempty"`
	RepliedAt                *time.Time       `json:"replied_at,omitempty"`
	GeneratedSubject         string           `json:"generated_subject,omitempty"`
	GeneratedBody            string           `json:"generated_body,omitempty"`
	GeneratedFollowUpSubject string           `json:"generated_follow_up_subject,omitempty"`
	GeneratedFollowUpBody    string           `json:"generated_follow_up_body,omitempty"`
	ResearchStatus           ResearchStatus   `json:"research_status"`
	ResearchData             string           `json:"research_data,omitempty"` // JSON blob
	ResearchError            string           `json:"research_error,omitempty"`
	ResearchedAt             *time.Time       `json:"researched_at,omitempty"`
	LastError                string           `json:"last_error,omitempty"`
	RetryCount               int              `json:"retry_count"`
	CreatedAt                time.Time        `json:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at"`
}

// ContactInfo is the slice of contact data the engine needs when composing
// and personalizing emails.
type ContactInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	JobTitle  string `json:"job_title,omitempty"`
	Headline  string `json:"headline,omitempty"`
}

// SendCandidate is a pending lead joined with its contact, as selected by the
// initial-send pass.
type SendCandidate struct {
	CampaignLead
	Contact ContactInfo
}

// FollowUpCandidate is a due follow-up lead joined with contact and the
// campaign fields needed to compose and send the follow-up.
type FollowUpCandidate struct {
	CampaignLead
	Contact         ContactInfo
	FromName        string
	FromEmail       string
	FollowUpSubject string
	FollowUpBody    string
}

// GenerationCandidate is a queued lead joined with contact and campaign
// templates, as selected by the generator sweep.
type GenerationCandidate struct {
	CampaignLead
	Contact          ContactInfo
	CampaignName     string
	SubjectTemplate  string
	BodyTemplate     string
	AIPrompt         string
	FollowUpEnabled  bool
	FollowUpSubject  string
	FollowUpBody     string
	FollowUpAIPrompt string
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *CampaignLead) error
	FindByID(ctx context.Context, id string) (*CampaignLead, error)
	FindWithContact(ctx context.Context, ids []string) ([]SendCandidate, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]SendCandidate, error)
	CountByCampaign(ctx context.Context, campaignID string) (int, error)

	// Sweep selection queries.
	FindPending(ctx context.Context, campaignID string, limit int) ([]SendCandidate, error)
	FindDueFollowUps(ctx context.Context, limit int) ([]FollowUpCandidate, error)
	FindGenerationQueued(ctx context.Context, limit int) ([]GenerationCandidate, error)

	// Atomic claims. Each is a single conditional UPDATE; false means another
	// actor already owns the transition or the precondition no longer holds.
	ClaimStatus(ctx context.Context, id string, from, to LeadStatus) (bool, error)
	ClaimFollowUpSend(ctx context.Context, id string) (bool, error)
	ClaimGeneration(ctx context.Context, id string, from, to GenerationStatus) (bool, error)

	// Post-dispatch transitions.
	MarkInitialSent(ctx context.Context, id string, next LeadStatus, followUpAt *time.Time, subject, body string) error
	MarkFollowUpSent(ctx context.Context, id, subject, body string) error
	RecordFailure(ctx context.Context, id string, status LeadStatus, lastError string, retryCount int) error

	// Generation bookkeeping.
	SaveGeneratedContent(ctx context.Context, id, subject, body, followUpSubject, followUpBody string) error
	MarkGenerationFailed(ctx context.Context, id, message string) error
	FailStuckGenerating(ctx context.Context, olderThan time.Duration) (int64, error)
	QueueGeneration(ctx context.Context, ids []string) (int64, error)
	ListFailedGeneration(ctx context.Context, campaignID string) ([]string, error)

	// External signals.
	MarkReplied(ctx context.Context, id string) error
	MarkBounced(ctx context.Context, id string) error

	// Research bookkeeping.
	MarkResearching(ctx context.Context, ids []string) error
	SaveResearch(ctx context.Context, id, dataJSON string) error
	MarkResearchFailed(ctx context.Context, id, message string) error
	MarkResearchSkipped(ctx context.Context, id, reason string) error
}
