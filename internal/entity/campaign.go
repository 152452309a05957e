package entity

import (
	"context"
	"time"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

type Campaign struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id"`
	Name                 string         `json:"name"`
	Status               CampaignStatus `json:"status"`
	FromName             string         `json:"from_name"`
	FromEmail            string         `json:"from_email"`
	SubjectTemplate      string         `json:"subject_template"`
	BodyTemplate         string         `json:"body_template"`
	AIPrompt             string         `json:"ai_prompt,omitempty"`
	FollowUpEnabled      bool           `json:"follow_up_enabled"`
	FollowUpDelayMinutes int            `json:"follow_up_delay_minutes"`
	FollowUpSubject      string         `json:"follow_up_subject,omitempty"`
	FollowUpBody         string         `json:"follow_up_body,omitempty"`
	FollowUpAIPrompt     string         `json:"follow_up_ai_prompt,omitempty"`
	DailyLimit           int            `json:"daily_limit"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// CampaignStats aggregates lead counts per status for the campaign detail view.
type CampaignStats struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	Sending         int `json:"sending"`
	Sent            int `json:"sent"`
	WaitingFollowUp int `json:"waiting_follow_up"`
	SendingFollowUp int `json:"sending_follow_up"`
	FollowUpSent    int `json:"follow_up_sent"`
	Completed       int `json:"completed"`
	Replied         int `json:"replied"`
	Bounced         int `json:"bounced"`
	Failed          int `json:"failed"`
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *Campaign) error
	FindByID(ctx context.Context, userID, id string) (*Campaign, error)
	List(ctx context.Context, userID string) ([]Campaign, error)
	ListActive(ctx context.Context) ([]Campaign, error)
	Update(ctx context.Context, c *Campaign) error
	UpdateStatus(ctx context.Context, id string, status CampaignStatus) error
	Delete(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, id string) (*CampaignStats, error)
}
