package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/entity"
)

func newLeadServiceEnv() (*store, *capturingPublisher, *LeadService) {
	s := newStore()
	publisher := &capturingPublisher{}
	svc := NewLeadService(&fakeLeadRepo{s}, &fakeLogRepo{s}, publisher)
	return s, publisher, svc
}

func TestMarkRepliedBeforeInitialSendIsRejected(t *testing.T) {
	s, _, svc := newLeadServiceEnv()
	s.addLead(pendingLead("lead-1", "camp-1"), testContact)

	_, err := svc.MarkReplied(context.Background(), "lead-1")

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidState, de.Code)
	assert.Equal(t, entity.LeadPending, s.lead("lead-1").Status)
}

func TestMarkRepliedOnTerminalLeadIsNoOp(t *testing.T) {
	s, publisher, svc := newLeadServiceEnv()
	lead := pendingLead("lead-1", "camp-1")
	lead.Status = entity.LeadCompleted
	s.addLead(lead, testContact)

	alreadyTerminal, err := svc.MarkReplied(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.True(t, alreadyTerminal)
	assert.Equal(t, entity.LeadCompleted, s.lead("lead-1").Status)
	assert.Empty(t, publisher.byType(EventLeadReplied))
}

func TestMarkRepliedTransitionsAndLogs(t *testing.T) {
	s, publisher, svc := newLeadServiceEnv()
	lead := pendingLead("lead-1", "camp-1")
	lead.Status = entity.LeadWaitingFollowUp
	s.addLead(lead, testContact)

	alreadyTerminal, err := svc.MarkReplied(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.False(t, alreadyTerminal)

	updated := s.lead("lead-1")
	assert.Equal(t, entity.LeadReplied, updated.Status)
	require.NotNil(t, updated.RepliedAt)
	assert.WithinDuration(t, time.Now(), *updated.RepliedAt, 5*time.Second)

	logs := s.logsFor("lead-1")
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ActionReplyDetected, logs[0].ActionType)

	assert.Len(t, publisher.byType(EventLeadReplied), 1)
}

func TestMarkRepliedUnknownLead(t *testing.T) {
	_, _, svc := newLeadServiceEnv()

	_, err := svc.MarkReplied(context.Background(), "nope")

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, de.Code)
}

func TestMarkBounced(t *testing.T) {
	s, publisher, svc := newLeadServiceEnv()
	lead := pendingLead("lead-1", "camp-1")
	lead.Status = entity.LeadWaitingFollowUp
	s.addLead(lead, testContact)

	require.NoError(t, svc.MarkBounced(context.Background(), "lead-1"))

	assert.Equal(t, entity.LeadBounced, s.lead("lead-1").Status)
	assert.Len(t, publisher.byType(EventLeadBounced), 1)

	// Bounce on a terminal lead stays put.
	require.NoError(t, svc.MarkBounced(context.Background(), "lead-1"))
	assert.Equal(t, entity.LeadBounced, s.lead("lead-1").Status)
}

func TestRetryFailedGeneration(t *testing.T) {
	s, _, svc := newLeadServiceEnv()

	failed := pendingLead("lead-1", "camp-1")
	failed.GenerationStatus = entity.GenerationFailed
	failed.LastError = "rate limited"
	s.addLead(failed, testContact)

	ready := pendingLead("lead-2", "camp-1")
	ready.GenerationStatus = entity.GenerationReady
	ready.GeneratedBody = "keep me"
	s.addLead(ready, testContact)

	count, err := svc.RetryFailedGeneration(context.Background(), "camp-1")

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, entity.GenerationQueued, s.lead("lead-1").GenerationStatus)
	assert.Empty(t, s.lead("lead-1").LastError)
	assert.Equal(t, entity.GenerationReady, s.lead("lead-2").GenerationStatus)
	assert.Equal(t, "keep me", s.lead("lead-2").GeneratedBody)
}

func TestRegenerateClearsContent(t *testing.T) {
	s, _, svc := newLeadServiceEnv()
	lead := pendingLead("lead-1", "camp-1")
	lead.GenerationStatus = entity.GenerationReady
	lead.GeneratedSubject = "old"
	lead.GeneratedBody = "old body"
	s.addLead(lead, testContact)

	require.NoError(t, svc.Regenerate(context.Background(), "lead-1"))

	updated := s.lead("lead-1")
	assert.Equal(t, entity.GenerationQueued, updated.GenerationStatus)
	assert.Empty(t, updated.GeneratedSubject)
	assert.Empty(t, updated.GeneratedBody)
}

func TestUpdateGeneratedContentMarksReady(t *testing.T) {
	s, _, svc := newLeadServiceEnv()
	lead := pendingLead("lead-1", "camp-1")
	lead.GenerationStatus = entity.GenerationFailed
	s.addLead(lead, testContact)

	err := svc.UpdateGeneratedContent(context.Background(), "lead-1", "Edited subject", "Edited body", "", "")

	require.NoError(t, err)
	updated := s.lead("lead-1")
	assert.Equal(t, entity.GenerationReady, updated.GenerationStatus)
	assert.Equal(t, "Edited subject", updated.GeneratedSubject)
	assert.Equal(t, "Edited body", updated.GeneratedBody)
}
