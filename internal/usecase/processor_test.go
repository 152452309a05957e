package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/entity"
)

type processorEnv struct {
	store     *store
	mailer    *fakeMailer
	ai        *fakeAI
	publisher *capturingPublisher
	processor *CampaignProcessor
}

func newProcessorEnv(cfg ProcessorConfig) *processorEnv {
	s := newStore()
	mailer := newFakeMailer()
	aiSvc := &fakeAI{}
	publisher := &capturingPublisher{}
	return &processorEnv{
		store:     s,
		mailer:    mailer,
		ai:        aiSvc,
		publisher: publisher,
		processor: NewCampaignProcessor(
			&fakeCampaignRepo{s}, &fakeLeadRepo{s}, &fakeLogRepo{s},
			mailer, aiSvc, publisher, cfg,
		),
	}
}

func activeCampaign(id string) *entity.Campaign {
	return &entity.Campaign{
		ID:                   id,
		UserID:               "default",
		Name:                 "Launch",
		Status:               entity.CampaignActive,
		FromName:             "Alex",
		FromEmail:            "alex@example.com",
		SubjectTemplate:      "Hello {{first_name}}",
		BodyTemplate:         "Hi {{first_name}}, greetings from us to {{company}}.",
		FollowUpEnabled:      true,
		FollowUpDelayMinutes: 60,
		DailyLimit:           50,
	}
}

func pendingLead(id, campaignID string) *entity.CampaignLead {
	return &entity.CampaignLead{
		ID:               id,
		CampaignID:       campaignID,
		ContactID:        "contact-" + id,
		Status:           entity.LeadPending,
		GenerationStatus: entity.GenerationNotStarted,
		ResearchStatus:   entity.ResearchNotStarted,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

var testContact = entity.ContactInfo{
	Email:     "sarah@acme.com",
	FirstName: "Sarah",
	Company:   "Acme",
}

func TestInitialSendSchedulesFollowUp(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	env.store.addCampaign(activeCampaign("camp-1"))
	env.store.addLead(pendingLead("lead-1", "camp-1"), testContact)

	env.processor.RunOnce(context.Background())

	lead := env.store.lead("lead-1")
	assert.Equal(t, entity.LeadWaitingFollowUp, lead.Status)
	require.NotNil(t, lead.EmailSentAt)
	require.NotNil(t, lead.FollowUpScheduledFor)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *lead.FollowUpScheduledFor, 5*time.Second)

	sent := env.mailer.sentTo()
	require.Len(t, sent, 1)
	assert.Equal(t, "sarah@acme.com", sent[0].To)
	assert.Equal(t, "Hello Sarah", sent[0].Subject)
	assert.Equal(t, "Hi Sarah, greetings from us to Acme.", sent[0].BodyHTML)

	logs := env.store.logsFor("lead-1")
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ActionInitialEmail, logs[0].ActionType)
	assert.Equal(t, entity.LogSent, logs[0].Status)

	assert.Len(t, env.publisher.byType(EventEmailSent), 1)
}

func TestInitialSendCompletesWhenFollowUpDisabled(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	campaign := activeCampaign("camp-1")
	campaign.FollowUpEnabled = false
	env.store.addCampaign(campaign)
	env.store.addLead(pendingLead("lead-1", "camp-1"), testContact)

	env.processor.RunOnce(context.Background())

	lead := env.store.lead("lead-1")
	assert.Equal(t, entity.LeadCompleted, lead.Status)
	assert.Nil(t, lead.FollowUpScheduledFor)
}

func TestInitialSendPrefersReadyGeneratedContent(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	env.store.addCampaign(activeCampaign("camp-1"))
	lead := pendingLead("lead-1", "camp-1")
	lead.GenerationStatus = entity.GenerationReady
	lead.GeneratedSubject = "Quick question, Sarah"
	lead.GeneratedBody = "Hi Sarah,\n\nSaw the Acme launch."
	env.store.addLead(lead, testContact)

	env.processor.RunOnce(context.Background())

	sent := env.mailer.sentTo()
	require.Len(t, sent, 1)
	assert.Equal(t, "Quick question, Sarah", sent[0].Subject)
	assert.Equal(t, "Hi Sarah,\n\nSaw the Acme launch.", sent[0].BodyHTML)
	// The AI boundary is not consulted when ready content exists.
	assert.Equal(t, 0, env.ai.callCount())
}

func TestInitialSendSkipsAlreadyClaimedLead(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	env.store.addCampaign(activeCampaign("camp-1"))
	lead := pendingLead("lead-1", "camp-1")
	lead.Status = entity.LeadSending
	env.store.addLead(lead, testContact)

	env.processor.RunOnce(context.Background())

	assert.Empty(t, env.mailer.sentTo())
	assert.Empty(t, env.store.logsFor("lead-1"))
}

func TestDailyLimitStopsSends(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	campaign := activeCampaign("camp-1")
	campaign.DailyLimit = 1
	env.store.addCampaign(campaign)

	done := pendingLead("lead-0", "camp-1")
	done.Status = entity.LeadCompleted
	env.store.addLead(done, testContact)
	env.store.addLead(pendingLead("lead-1", "camp-1"), testContact)

	logRepo := &fakeLogRepo{env.store}
	require.NoError(t, logRepo.Append(context.Background(), &entity.EmailLog{
		ID:             "log-0",
		CampaignLeadID: "lead-0",
		ActionType:     entity.ActionInitialEmail,
		Status:         entity.LogSent,
		Metadata:       "{}",
	}))

	env.processor.RunOnce(context.Background())

	assert.Empty(t, env.mailer.sentTo())
	assert.Equal(t, entity.LeadPending, env.store.lead("lead-1").Status)
}

func TestSendFailureRetriesThenFailsPermanently(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{MaxRetries: 3})
	env.store.addCampaign(activeCampaign("camp-1"))
	env.store.addLead(pendingLead("lead-1", "camp-1"), testContact)
	env.mailer.failFor["sarah@acme.com"] = SendResult{Error: "mailbox does not exist"}

	ctx := context.Background()

	env.processor.RunOnce(ctx)
	lead := env.store.lead("lead-1")
	assert.Equal(t, entity.LeadPending, lead.Status)
	assert.Equal(t, 1, lead.RetryCount)
	assert.Equal(t, "mailbox does not exist", lead.LastError)

	env.processor.RunOnce(ctx)
	lead = env.store.lead("lead-1")
	assert.Equal(t, entity.LeadPending, lead.Status)
	assert.Equal(t, 2, lead.RetryCount)

	env.processor.RunOnce(ctx)
	lead = env.store.lead("lead-1")
	assert.Equal(t, entity.LeadFailed, lead.Status)
	assert.Equal(t, 3, lead.RetryCount)

	logs := env.store.logsFor("lead-1")
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Equal(t, entity.LogFailed, l.Status)
	}
	assert.Len(t, env.publisher.byType(EventEmailFailed), 3)

	// A failed lead is terminal: further sweeps leave it alone.
	env.processor.RunOnce(ctx)
	assert.Equal(t, 3, env.store.lead("lead-1").RetryCount)
}

func TestFollowUpSendUsesReSubjectFallback(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	env.store.addCampaign(activeCampaign("camp-1"))

	due := time.Now().Add(-time.Minute)
	lead := pendingLead("lead-1", "camp-1")
	lead.Status = entity.LeadWaitingFollowUp
	lead.FollowUpScheduledFor = &due
	lead.GeneratedSubject = "Hello Sarah"
	env.store.addLead(lead, testContact)

	env.processor.RunOnce(context.Background())

	sent := env.mailer.sentTo()
	require.Len(t, sent, 1)
	assert.Equal(t, "Re: Hello Sarah", sent[0].Subject)
	assert.Equal(t, "Just following up on my previous email. Would love to connect!", sent[0].BodyHTML)

	updated := env.store.lead("lead-1")
	assert.Equal(t, entity.LeadFollowUpSent, updated.Status)
	require.NotNil(t, updated.FollowUpSentAt)

	logs := env.store.logsFor("lead-1")
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ActionFollowUp, logs[0].ActionType)
}

func TestFollowUpSuppressedByLateReply(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	env.store.addCampaign(activeCampaign("camp-1"))

	due := time.Now().Add(-time.Minute)
	lead := pendingLead("lead-1", "camp-1")
	lead.Status = entity.LeadWaitingFollowUp
	lead.FollowUpScheduledFor = &due
	lead.GeneratedSubject = "Hello Sarah"
	env.store.addLead(lead, testContact)

	// Candidate selected before the reply lands.
	candidate := entity.FollowUpCandidate{
		CampaignLead: *lead,
		Contact:      testContact,
		FromName:     "Alex",
		FromEmail:    "alex@example.com",
	}

	leadRepo := &fakeLeadRepo{env.store}
	require.NoError(t, leadRepo.MarkReplied(context.Background(), "lead-1"))

	env.processor.sendFollowUp(context.Background(), &candidate)

	assert.Empty(t, env.mailer.sentTo())
	assert.Empty(t, env.store.logsFor("lead-1"))
	assert.Equal(t, entity.LeadReplied, env.store.lead("lead-1").Status)
}

func TestPausedCampaignIsNotProcessed(t *testing.T) {
	env := newProcessorEnv(ProcessorConfig{})
	campaign := activeCampaign("camp-1")
	campaign.Status = entity.CampaignPaused
	env.store.addCampaign(campaign)
	env.store.addLead(pendingLead("lead-1", "camp-1"), testContact)

	env.processor.RunOnce(context.Background())

	assert.Empty(t, env.mailer.sentTo())
	assert.Equal(t, entity.LeadPending, env.store.lead("lead-1").Status)
}
