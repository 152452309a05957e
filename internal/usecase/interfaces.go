package usecase

import (
	"context"
)

// SendRequest is one outbound email handed to the dispatch boundary.
type SendRequest struct {
	To        string `json:"to"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	Subject   string `json:"subject"`
	BodyHTML  string `json:"body_html"`
}

// SendResult carries the provider outcome. Retryable distinguishes transient
// dispatch failures (rate limit, timeout, connection reset) from permanent
// ones; the caller never inspects error text.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type MailerInterface interface {
	Send(ctx context.Context, req SendRequest) SendResult
}

// GenerateRequest is the input to the AI content boundary.
type GenerateRequest struct {
	SystemPrompt string          `json:"system_prompt"`
	Contact      GenerateContact `json:"contact"`
	Template     string          `json:"template"`
	Research     string          `json:"research,omitempty"`
}

type GenerateContact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	JobTitle  string `json:"job_title,omitempty"`
	Headline  string `json:"headline,omitempty"`
}

type GenerateResult struct {
	Success   bool   `json:"success"`
	Subject   string `json:"subject,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type AIServiceInterface interface {
	GenerateEmail(ctx context.Context, req GenerateRequest) GenerateResult
}

// ResearchRequest asks the research boundary for company intel.
type ResearchRequest struct {
	Company   string `json:"company"`
	JobTitle  string `json:"job_title,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type ResearchResult struct {
	Success bool   `json:"success"`
	Summary string `json:"summary,omitempty"`
	Source  string `json:"source,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ResearchServiceInterface interface {
	ResearchCompany(ctx context.Context, req ResearchRequest) ResearchResult
	IsConfigured() bool
}

// LeadEvent is published after lifecycle transitions so downstream consumers
// (CRM sync, analytics) can react without polling.
type LeadEvent struct {
	Type       string `json:"type"` // email.sent, email.failed, lead.replied, lead.bounced
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id,omitempty"`
	Email      string `json:"email,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

const (
	EventEmailSent   = "email.sent"
	EventEmailFailed = "email.failed"
	EventLeadReplied = "lead.replied"
	EventLeadBounced = "lead.bounced"
)

type EventPublisherInterface interface {
	PublishLeadEvent(ctx context.Context, event LeadEvent) error
}
