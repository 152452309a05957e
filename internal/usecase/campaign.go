package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/entity"
)

const (
	defaultFollowUpDelayMinutes = 2880 // 48 hours
	defaultDailyLimit           = 50
)

type CreateCampaignInput struct {
	Name                 string `json:"name"`
	FromName             string `json:"from_name"`
	FromEmail            string `json:"from_email"`
	SubjectTemplate      string `json:"subject_template"`
	BodyTemplate         string `json:"body_template"`
	AIPrompt             string `json:"ai_prompt,omitempty"`
	FollowUpEnabled      *bool  `json:"follow_up_enabled,omitempty"`
	FollowUpDelayMinutes *int   `json:"follow_up_delay_minutes,omitempty"`
	FollowUpSubject      string `json:"follow_up_subject,omitempty"`
	FollowUpBody         string `json:"follow_up_body,omitempty"`
	FollowUpAIPrompt     string `json:"follow_up_ai_prompt,omitempty"`
	DailyLimit           *int   `json:"daily_limit,omitempty"`
}

type UpdateCampaignInput struct {
	Name                 *string `json:"name,omitempty"`
	FromName             *string `json:"from_name,omitempty"`
	FromEmail            *string `json:"from_email,omitempty"`
	SubjectTemplate      *string `json:"subject_template,omitempty"`
	BodyTemplate         *string `json:"body_template,omitempty"`
	AIPrompt             *string `json:"ai_prompt,omitempty"`
	FollowUpEnabled      *bool   `json:"follow_up_enabled,omitempty"`
	FollowUpDelayMinutes *int    `json:"follow_up_delay_minutes,omitempty"`
	FollowUpSubject      *string `json:"follow_up_subject,omitempty"`
	FollowUpBody         *string `json:"follow_up_body,omitempty"`
	FollowUpAIPrompt     *string `json:"follow_up_ai_prompt,omitempty"`
	DailyLimit           *int    `json:"daily_limit,omitempty"`
}

type AddLeadsResult struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Total   int      `json:"total"`
	Errors  []string `json:"errors,omitempty"`
}

// CampaignService manages the campaign lifecycle state machine and lead
// membership.
type CampaignService struct {
	campaigns entity.CampaignRepositoryInterface
	contacts  entity.ContactRepositoryInterface
	leads     entity.LeadRepositoryInterface
}

func NewCampaignService(
	campaigns entity.CampaignRepositoryInterface,
	contacts entity.ContactRepositoryInterface,
	leads entity.LeadRepositoryInterface,
) *CampaignService {
	return &CampaignService{campaigns: campaigns, contacts: contacts, leads: leads}
}

func (s *CampaignService) Create(ctx context.Context, userID string, input CreateCampaignInput) (*entity.Campaign, error) {
	if errs := ValidateCampaignInput(input); len(errs) > 0 {
		return nil, ValidationFailed(errs)
	}

	campaign := &entity.Campaign{
		ID:                   uuid.New().String(),
		UserID:               userID,
		Name:                 strings.TrimSpace(input.Name),
		Status:               entity.CampaignDraft,
		FromName:             strings.TrimSpace(input.FromName),
		FromEmail:            strings.ToLower(strings.TrimSpace(input.FromEmail)),
		SubjectTemplate:      strings.TrimSpace(input.SubjectTemplate),
		BodyTemplate:         strings.TrimSpace(input.BodyTemplate),
		AIPrompt:             strings.TrimSpace(input.AIPrompt),
		FollowUpEnabled:      input.FollowUpEnabled == nil || *input.FollowUpEnabled,
		FollowUpDelayMinutes: defaultFollowUpDelayMinutes,
		FollowUpSubject:      strings.TrimSpace(input.FollowUpSubject),
		FollowUpBody:         strings.TrimSpace(input.FollowUpBody),
		FollowUpAIPrompt:     strings.TrimSpace(input.FollowUpAIPrompt),
		DailyLimit:           defaultDailyLimit,
	}
	if input.FollowUpDelayMinutes != nil {
		campaign.FollowUpDelayMinutes = *input.FollowUpDelayMinutes
	}
	if input.DailyLimit != nil {
		campaign.DailyLimit = *input.DailyLimit
	}

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return campaign, nil
}

func (s *CampaignService) Get(ctx context.Context, userID, id string) (*entity.Campaign, *entity.CampaignStats, error) {
	campaign, err := s.campaigns.FindByID(ctx, userID, id)
	if err != nil {
		return nil, nil, NotFound("campaign not found")
	}
	stats, err := s.campaigns.Stats(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("campaign stats: %w", err)
	}
	return campaign, stats, nil
}

func (s *CampaignService) List(ctx context.Context, userID string) ([]entity.Campaign, error) {
	return s.campaigns.List(ctx, userID)
}

func (s *CampaignService) Update(ctx context.Context, userID, id string, input UpdateCampaignInput) (*entity.Campaign, error) {
	campaign, err := s.campaigns.FindByID(ctx, userID, id)
	if err != nil {
		return nil, NotFound("campaign not found")
	}

	if input.Name != nil {
		campaign.Name = strings.TrimSpace(*input.Name)
	}
	if input.FromName != nil {
		campaign.FromName = strings.TrimSpace(*input.FromName)
	}
	if input.FromEmail != nil {
		campaign.FromEmail = strings.ToLower(strings.TrimSpace(*input.FromEmail))
	}
	if input.SubjectTemplate != nil {
		campaign.SubjectTemplate = strings.TrimSpace(*input.SubjectTemplate)
	}
	if input.BodyTemplate != nil {
		campaign.BodyTemplate = strings.TrimSpace(*input.BodyTemplate)
	}
	if input.AIPrompt != nil {
		campaign.AIPrompt = strings.TrimSpace(*input.AIPrompt)
	}
	if input.FollowUpEnabled != nil {
		campaign.FollowUpEnabled = *input.FollowUpEnabled
	}
	if input.FollowUpDelayMinutes != nil {
		campaign.FollowUpDelayMinutes = *input.FollowUpDelayMinutes
	}
	if input.FollowUpSubject != nil {
		campaign.FollowUpSubject = strings.TrimSpace(*input.FollowUpSubject)
	}
	if input.FollowUpBody != nil {
		campaign.FollowUpBody = strings.TrimSpace(*input.FollowUpBody)
	}
	if input.FollowUpAIPrompt != nil {
		campaign.FollowUpAIPrompt = strings.TrimSpace(*input.FollowUpAIPrompt)
	}
	if input.DailyLimit != nil {
		campaign.DailyLimit = *input.DailyLimit
	}

	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}
	return campaign, nil
}

// Start activates a draft or paused campaign. A campaign without leads
// cannot be started.
func (s *CampaignService) Start(ctx context.Context, userID, id string) (int, error) {
	campaign, err := s.campaigns.FindByID(ctx, userID, id)
	if err != nil {
		return 0, NotFound("campaign not found")
	}

	leadCount, err := s.leads.CountByCampaign(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}

	switch campaign.Status {
	case entity.CampaignActive:
		return leadCount, nil
	case entity.CampaignCompleted:
		return 0, InvalidState("cannot start a completed campaign")
	}

	if leadCount == 0 {
		return 0, InvalidState("cannot start campaign with no leads")
	}

	if err := s.campaigns.UpdateStatus(ctx, id, entity.CampaignActive); err != nil {
		return 0, fmt.Errorf("activate campaign: %w", err)
	}
	log.Printf("[campaigns] campaign %q started with %d leads", campaign.Name, leadCount)
	return leadCount, nil
}

func (s *CampaignService) Pause(ctx context.Context, userID, id string) error {
	campaign, err := s.campaigns.FindByID(ctx, userID, id)
	if err != nil {
		return NotFound("campaign not found")
	}

	if campaign.Status == entity.CampaignPaused {
		return nil
	}
	if campaign.Status != entity.CampaignActive {
		return InvalidState("can only pause active campaigns")
	}

	if err := s.campaigns.UpdateStatus(ctx, id, entity.CampaignPaused); err != nil {
		return fmt.Errorf("pause campaign: %w", err)
	}
	log.Printf("[campaigns] campaign %q paused", campaign.Name)
	return nil
}

// Delete removes a campaign and, via cascade, its leads. Active campaigns
// must be paused first.
func (s *CampaignService) Delete(ctx context.Context, userID, id string) error {
	campaign, err := s.campaigns.FindByID(ctx, userID, id)
	if err != nil {
		return NotFound("campaign not found")
	}

	if campaign.Status == entity.CampaignActive {
		return InvalidState("cannot delete an active campaign; pause it first")
	}

	if err := s.campaigns.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	log.Printf("[campaigns] campaign %q deleted", campaign.Name)
	return nil
}

// AddLeads attaches contacts to the campaign. New leads start pending and
// queued for generation. Duplicates and unknown contacts are skipped, not
// fatal.
func (s *CampaignService) AddLeads(ctx context.Context, userID, campaignID string, contactIDs []string) (*AddLeadsResult, error) {
	if len(contactIDs) == 0 {
		return nil, ValidationFailed([]string{"contact_ids: at least one id is required"})
	}

	campaign, err := s.campaigns.FindByID(ctx, userID, campaignID)
	if err != nil {
		return nil, NotFound("campaign not found")
	}
	if campaign.Status == entity.CampaignCompleted {
		return nil, InvalidState("cannot add leads to a completed campaign")
	}

	result := &AddLeadsResult{Total: len(contactIDs)}
	for _, contactID := range contactIDs {
		if _, err := s.contacts.FindByID(ctx, userID, contactID); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("contact %s not found", contactID))
			continue
		}

		lead := &entity.CampaignLead{
			ID:               uuid.New().String(),
			CampaignID:       campaignID,
			ContactID:        contactID,
			Status:           entity.LeadPending,
			GenerationStatus: entity.GenerationQueued,
			ResearchStatus:   entity.ResearchNotStarted,
		}
		if err := s.leads.Create(ctx, lead); err != nil {
			result.Skipped++
			if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
				result.Errors = append(result.Errors, fmt.Sprintf("contact %s already in campaign", contactID))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("contact %s: %v", contactID, err))
			}
			continue
		}
		result.Added++
	}

	return result, nil
}

func (s *CampaignService) ListLeads(ctx context.Context, userID, campaignID string) ([]entity.SendCandidate, error) {
	if _, err := s.campaigns.FindByID(ctx, userID, campaignID); err != nil {
		return nil, NotFound("campaign not found")
	}
	return s.leads.ListByCampaign(ctx, campaignID)
}
