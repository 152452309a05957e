package entity

import (
	"context"
	"time"
)

type EmailAction string

const (
	ActionInitialEmail  EmailAction = "initial_email"
	ActionFollowUp      EmailAction = "follow_up"
	ActionReplyDetected EmailAction = "reply_detected"
)

type EmailLogStatus string

const (
	LogPending   EmailLogStatus = "pending"
	LogSent      EmailLogStatus = "sent"
	LogDelivered EmailLogStatus = "delivered"
	LogOpened    EmailLogStatus = "opened"
	LogClicked   EmailLogStatus = "clicked"
	LogBounced   EmailLogStatus = "bounced"
	LogFailed    EmailLogStatus = "failed"
)

// EmailLog is an append-only audit record, one row per send attempt or
// detected event.
type EmailLog struct {
	ID                string         `json:"id"`
	CampaignLeadID    string         `json:"campaign_lead_id"`
	ActionType        EmailAction    `json:"action_type"`
	Status            EmailLogStatus `json:"status"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Metadata          string         `json:"metadata"` // JSON blob
	CreatedAt         time.Time      `json:"created_at"`
}

type EmailLogRepositoryInterface interface {
	Append(ctx context.Context, log *EmailLog) error
	// CountInitialSentToday counts initial_email rows created today (UTC
	// calendar day) for the campaign, feeding the daily-limit check.
	CountInitialSentToday(ctx context.Context, campaignID string) (int, error)
	ListByLead(ctx context.Context, leadID string) ([]EmailLog, error)
}
