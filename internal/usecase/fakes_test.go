package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cadencehq/cadence/internal/entity"
)

// store is a shared in-memory backing for the fake repositories, mimicking
// the conditional-update semantics of the real ones.
type store struct {
	mu             sync.Mutex
	campaigns      map[string]*entity.Campaign
	contacts       map[string]*entity.Contact
	leads          map[string]*entity.CampaignLead
	contactsByLead map[string]entity.ContactInfo
	logs           []entity.EmailLog
}

func newStore() *store {
	return &store{
		campaigns:      map[string]*entity.Campaign{},
		contacts:       map[string]*entity.Contact{},
		leads:          map[string]*entity.CampaignLead{},
		contactsByLead: map[string]entity.ContactInfo{},
	}
}

func (s *store) addCampaign(c *entity.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

func (s *store) addLead(lead *entity.CampaignLead, contact entity.ContactInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = lead
	s.contactsByLead[lead.ID] = contact
}

func (s *store) lead(id string) entity.CampaignLead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.leads[id]
}

func (s *store) logsFor(id string) []entity.EmailLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.EmailLog
	for _, l := range s.logs {
		if l.CampaignLeadID == id {
			out = append(out, l)
		}
	}
	return out
}

// --- campaign repository ---

type fakeCampaignRepo struct{ s *store }

func (r *fakeCampaignRepo) Create(ctx context.Context, c *entity.Campaign) error {
	r.s.addCampaign(c)
	return nil
}

func (r *fakeCampaignRepo) FindByID(ctx context.Context, userID, id string) (*entity.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.UserID != userID {
		return nil, errors.New("sql: no rows in result set")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) List(ctx context.Context, userID string) ([]entity.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Campaign
	for _, c := range r.s.campaigns {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) ListActive(ctx context.Context) ([]entity.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Campaign
	for _, c := range r.s.campaigns {
		if c.Status == entity.CampaignActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, c *entity.Campaign) error {
	r.s.addCampaign(c)
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id string, status entity.CampaignStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) Delete(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.campaigns, id)
	return nil
}

func (r *fakeCampaignRepo) Stats(ctx context.Context, id string) (*entity.CampaignStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &entity.CampaignStats{}
	for _, l := range r.s.leads {
		if l.CampaignID != id {
			continue
		}
		stats.Total++
		switch l.Status {
		case entity.LeadPending:
			stats.Pending++
		case entity.LeadCompleted:
			stats.Completed++
		case entity.LeadReplied:
			stats.Replied++
		case entity.LeadFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// --- contact repository ---

type fakeContactRepo struct{ s *store }

func (r *fakeContactRepo) Create(ctx context.Context, c *entity.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.contacts {
		if existing.UserID == c.UserID && existing.Email == c.Email {
			return errors.New(`pq: duplicate key value violates unique constraint "contacts_user_id_email_key"`)
		}
	}
	r.s.contacts[c.ID] = c
	return nil
}

func (r *fakeContactRepo) FindByID(ctx context.Context, userID, id string) (*entity.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok || c.UserID != userID {
		return nil, errors.New("sql: no rows in result set")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContactRepo) List(ctx context.Context, userID string) ([]entity.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Contact
	for _, c := range r.s.contacts {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) Update(ctx context.Context, c *entity.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.contacts[c.ID] = c
	return nil
}

func (r *fakeContactRepo) Delete(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.contacts, id)
	return nil
}

func (r *fakeContactRepo) HasActiveLead(ctx context.Context, contactID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.leads {
		if l.ContactID == contactID && !l.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// --- lead repository ---

type fakeLeadRepo struct{ s *store }

func (r *fakeLeadRepo) Create(ctx context.Context, lead *entity.CampaignLead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.leads {
		if existing.CampaignID == lead.CampaignID && existing.ContactID == lead.ContactID {
			return errors.New(`pq: duplicate key value violates unique constraint "campaign_leads_campaign_id_contact_id_key"`)
		}
	}
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = time.Now()
	r.s.leads[lead.ID] = lead
	if contact, ok := r.s.contacts[lead.ContactID]; ok {
		r.s.contactsByLead[lead.ID] = entity.ContactInfo{
			Email:     contact.Email,
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Company:   contact.Company,
			JobTitle:  contact.JobTitle,
			Headline:  contact.Headline,
		}
	}
	return nil
}

func (r *fakeLeadRepo) FindByID(ctx context.Context, id string) (*entity.CampaignLead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLeadRepo) FindWithContact(ctx context.Context, ids []string) ([]entity.SendCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.SendCandidate
	for _, id := range ids {
		if l, ok := r.s.leads[id]; ok {
			out = append(out, entity.SendCandidate{CampaignLead: *l, Contact: r.s.contactsByLead[id]})
		}
	}
	return out, nil
}

func (r *fakeLeadRepo) ListByCampaign(ctx context.Context, campaignID string) ([]entity.SendCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.SendCandidate
	for id, l := range r.s.leads {
		if l.CampaignID == campaignID {
			out = append(out, entity.SendCandidate{CampaignLead: *l, Contact: r.s.contactsByLead[id]})
		}
	}
	return out, nil
}

func (r *fakeLeadRepo) CountByCampaign(ctx context.Context, campaignID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, l := range r.s.leads {
		if l.CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

func (r *fakeLeadRepo) FindPending(ctx context.Context, campaignID string, limit int) ([]entity.SendCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.SendCandidate
	for id, l := range r.s.leads {
		if len(out) >= limit {
			break
		}
		if l.CampaignID == campaignID && l.Status == entity.LeadPending {
			out = append(out, entity.SendCandidate{CampaignLead: *l, Contact: r.s.contactsByLead[id]})
		}
	}
	return out, nil
}

func (r *fakeLeadRepo) FindDueFollowUps(ctx context.Context, limit int) ([]entity.FollowUpCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.FollowUpCandidate
	for id, l := range r.s.leads {
		if len(out) >= limit {
			break
		}
		c, ok := r.s.campaigns[l.CampaignID]
		if !ok || c.Status != entity.CampaignActive || !c.FollowUpEnabled {
			continue
		}
		if l.Status != entity.LeadWaitingFollowUp || l.RepliedAt != nil {
			continue
		}
		if l.FollowUpScheduledFor == nil || l.FollowUpScheduledFor.After(time.Now()) {
			continue
		}
		out = append(out, entity.FollowUpCandidate{
			CampaignLead:    *l,
			Contact:         r.s.contactsByLead[id],
			FromName:        c.FromName,
			FromEmail:       c.FromEmail,
			FollowUpSubject: c.FollowUpSubject,
			FollowUpBody:    c.FollowUpBody,
		})
	}
	return out, nil
}

func (r *fakeLeadRepo) FindGenerationQueued(ctx context.Context, limit int) ([]entity.GenerationCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.GenerationCandidate
	for id, l := range r.s.leads {
		if len(out) >= limit {
			break
		}
		if l.GenerationStatus != entity.GenerationQueued {
			continue
		}
		c := r.s.campaigns[l.CampaignID]
		if c == nil {
			continue
		}
		out = append(out, entity.GenerationCandidate{
			CampaignLead:     *l,
			Contact:          r.s.contactsByLead[id],
			CampaignName:     c.Name,
			SubjectTemplate:  c.SubjectTemplate,
			BodyTemplate:     c.BodyTemplate,
			AIPrompt:         c.AIPrompt,
			FollowUpEnabled:  c.FollowUpEnabled,
			FollowUpSubject:  c.FollowUpSubject,
			FollowUpBody:     c.FollowUpBody,
			FollowUpAIPrompt: c.FollowUpAIPrompt,
		})
	}
	return out, nil
}

func (r *fakeLeadRepo) ClaimStatus(ctx context.Context, id string, from, to entity.LeadStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	l.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeLeadRepo) ClaimFollowUpSend(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok || l.Status != entity.LeadWaitingFollowUp || l.RepliedAt != nil {
		return false, nil
	}
	l.Status = entity.LeadSendingFollowUp
	l.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeLeadRepo) ClaimGeneration(ctx context.Context, id string, from, to entity.GenerationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok || l.GenerationStatus != from {
		return false, nil
	}
	l.GenerationStatus = to
	l.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeLeadRepo) MarkInitialSent(ctx context.Context, id string, next entity.LeadStatus, followUpAt *time.Time, subject, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	now := time.Now()
	l.Status = next
	l.EmailSentAt = &now
	l.FollowUpScheduledFor = followUpAt
	l.GeneratedSubject = subject
	l.GeneratedBody = body
	l.LastError = ""
	l.UpdatedAt = now
	return nil
}

func (r *fakeLeadRepo) MarkFollowUpSent(ctx context.Context, id, subject, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	now := time.Now()
	l.Status = entity.LeadFollowUpSent
	l.FollowUpSentAt = &now
	l.GeneratedFollowUpSubject = subject
	l.GeneratedFollowUpBody = body
	l.LastError = ""
	l.UpdatedAt = now
	return nil
}

func (r *fakeLeadRepo) RecordFailure(ctx context.Context, id string, status entity.LeadStatus, lastError string, retryCount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	l.Status = status
	l.LastError = lastError
	l.RetryCount = retryCount
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeLeadRepo) SaveGeneratedContent(ctx context.Context, id, subject, body, followUpSubject, followUpBody string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	l.GenerationStatus = entity.GenerationReady
	l.GeneratedSubject = subject
	l.GeneratedBody = body
	l.GeneratedFollowUpSubject = followUpSubject
	l.GeneratedFollowUpBody = followUpBody
	l.LastError = ""
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeLeadRepo) MarkGenerationFailed(ctx context.Context, id, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	l.GenerationStatus = entity.GenerationFailed
	l.LastError = message
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeLeadRepo) FailStuckGenerating(ctx context.Context, olderThan time.Duration) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	cutoff := time.Now().Add(-olderThan)
	for _, l := range r.s.leads {
		if l.GenerationStatus == entity.GenerationGenerating && l.UpdatedAt.Before(cutoff) {
			l.GenerationStatus = entity.GenerationFailed
			l.LastError = "generation timed out"
			n++
		}
	}
	return n, nil
}

func (r *fakeLeadRepo) QueueGeneration(ctx context.Context, ids []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		l, ok := r.s.leads[id]
		if !ok {
			continue
		}
		l.GenerationStatus = entity.GenerationQueued
		l.GeneratedSubject = ""
		l.GeneratedBody = ""
		l.GeneratedFollowUpSubject = ""
		l.GeneratedFollowUpBody = ""
		l.LastError = ""
		l.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func (r *fakeLeadRepo) ListFailedGeneration(ctx context.Context, campaignID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for id, l := range r.s.leads {
		if l.CampaignID == campaignID && l.GenerationStatus == entity.GenerationFailed {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeLeadRepo) MarkReplied(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	now := time.Now()
	l.Status = entity.LeadReplied
	l.RepliedAt = &now
	l.UpdatedAt = now
	return nil
}

func (r *fakeLeadRepo) MarkBounced(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	l.Status = entity.LeadBounced
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeLeadRepo) MarkResearching(ctx context.Context, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if l, ok := r.s.leads[id]; ok {
			l.ResearchStatus = entity.ResearchInProgress
			l.ResearchError = ""
		}
	}
	return nil
}

func (r *fakeLeadRepo) SaveResearch(ctx context.Context, id, dataJSON string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	now := time.Now()
	l.ResearchStatus = entity.ResearchComplete
	l.ResearchData = dataJSON
	l.ResearchError = ""
	l.ResearchedAt = &now
	return nil
}

func (r *fakeLeadRepo) MarkResearchFailed(ctx context.Context, id, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	l.ResearchStatus = entity.ResearchFailedState
	l.ResearchError = message
	return nil
}

func (r *fakeLeadRepo) MarkResearchSkipped(ctx context.Context, id, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := r.s.leads[id]
	l.ResearchStatus = entity.ResearchSkipped
	l.ResearchError = reason
	return nil
}

// --- email log repository ---

type fakeLogRepo struct{ s *store }

func (r *fakeLogRepo) Append(ctx context.Context, log *entity.EmailLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.CreatedAt = time.Now()
	r.s.logs = append(r.s.logs, *log)
	return nil
}

func (r *fakeLogRepo) CountInitialSentToday(ctx context.Context, campaignID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, l := range r.s.logs {
		lead, ok := r.s.leads[l.CampaignLeadID]
		if !ok || lead.CampaignID != campaignID {
			continue
		}
		if l.ActionType == entity.ActionInitialEmail && l.Status == entity.LogSent {
			count++
		}
	}
	return count, nil
}

func (r *fakeLogRepo) ListByLead(ctx context.Context, leadID string) ([]entity.EmailLog, error) {
	return r.s.logsFor(leadID), nil
}

// --- dispatch and generation fakes ---

type fakeMailer struct {
	mu      sync.Mutex
	sent    []SendRequest
	failFor map[string]SendResult
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: map[string]SendResult{}}
}

func (m *fakeMailer) Send(ctx context.Context, req SendRequest) SendResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result, ok := m.failFor[req.To]; ok {
		return result
	}
	m.sent = append(m.sent, req)
	return SendResult{Success: true, MessageID: fmt.Sprintf("msg-%d", len(m.sent))}
}

func (m *fakeMailer) sentTo() []SendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendRequest, len(m.sent))
	copy(out, m.sent)
	return out
}

type fakeAI struct {
	mu      sync.Mutex
	results []GenerateResult
	calls   int
}

func (a *fakeAI) GenerateEmail(ctx context.Context, req GenerateRequest) GenerateResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.results) == 0 {
		return GenerateResult{Success: true, Subject: "Generated subject", Content: "Generated body"}
	}
	result := a.results[0]
	if len(a.results) > 1 {
		a.results = a.results[1:]
	}
	return result
}

func (a *fakeAI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeResearch struct {
	configured bool
	result     ResearchResult
}

func (r *fakeResearch) ResearchCompany(ctx context.Context, req ResearchRequest) ResearchResult {
	return r.result
}

func (r *fakeResearch) IsConfigured() bool { return r.configured }

type capturingPublisher struct {
	mu     sync.Mutex
	events []LeadEvent
}

func (p *capturingPublisher) PublishLeadEvent(ctx context.Context, event LeadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(eventType string) []LeadEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []LeadEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
