package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/cadencehq/cadence/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `
	cl.id, cl.campaign_id, cl.contact_id, cl.status, cl.generation_status,
	cl.email_sent_at, cl.follow_up_scheduled_for, cl.follow_up_sent_at, cl.replied_at,
	cl.generated_subject, cl.generated_body,
	cl.generated_follow_up_subject, cl.generated_follow_up_body,
	cl.research_status, cl.research_data, cl.research_error, cl.researched_at,
	cl.last_error, cl.retry_count, cl.created_at, cl.updated_at`

const contactColumns = `
	c.email, c.first_name, c.last_name, c.company, c.job_title, c.headline`

func (r *LeadRepository) Create(ctx context.Context, lead *entity.CampaignLead) error {
	query := `
		INSERT INTO campaign_leads (id, campaign_id, contact_id, status, generation_status, research_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.DB.QueryRowContext(
		ctx,
		query,
		lead.ID,
		lead.CampaignID,
		lead.ContactID,
		lead.Status,
		lead.GenerationStatus,
		lead.ResearchStatus,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.CampaignLead, error) {
	query := `SELECT ` + leadColumns + ` FROM campaign_leads cl WHERE cl.id = $1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *LeadRepository) FindWithContact(ctx context.Context, ids []string) ([]entity.SendCandidate, error) {
	query := `
		SELECT ` + leadColumns + `, ` + contactColumns + `
		FROM campaign_leads cl
		JOIN contacts c ON c.id = cl.contact_id
		WHERE cl.id = ANY($1)
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSendCandidates(rows)
}

func (r *LeadRepository) ListByCampaign(ctx context.Context, campaignID string) ([]entity.SendCandidate, error) {
	query := `
		SELECT ` + leadColumns + `, ` + contactColumns + `
		FROM campaign_leads cl
		JOIN contacts c ON c.id = cl.contact_id
		WHERE cl.campaign_id = $1
		ORDER BY cl.created_at
	`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSendCandidates(rows)
}

func (r *LeadRepository) CountByCampaign(ctx context.Context, campaignID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = $1`, campaignID,
	).Scan(&count)
	return count, err
}

func (r *LeadRepository) FindPending(ctx context.Context, campaignID string, limit int) ([]entity.SendCandidate, error) {
	query := `
		SELECT ` + leadColumns + `, ` + contactColumns + `
		FROM campaign_leads cl
		JOIN contacts c ON c.id = cl.contact_id
		WHERE cl.campaign_id = $1 AND cl.status = 'pending'
		ORDER BY cl.created_at
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSendCandidates(rows)
}

func (r *LeadRepository) FindDueFollowUps(ctx context.Context, limit int) ([]entity.FollowUpCandidate, error) {
	query := `
		SELECT ` + leadColumns + `, ` + contactColumns + `,
			ca.from_name, ca.from_email, ca.follow_up_subject, ca.follow_up_body
		FROM campaign_leads cl
		JOIN contacts c ON c.id = cl.contact_id
		JOIN campaigns ca ON ca.id = cl.campaign_id
		WHERE cl.status = 'waiting_follow_up'
			AND cl.replied_at IS NULL
			AND cl.follow_up_scheduled_for <= NOW()
			AND ca.status = 'active'
			AND ca.follow_up_enabled
		ORDER BY cl.follow_up_scheduled_for
		LIMIT $1
	`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.FollowUpCandidate
	for rows.Next() {
		var cand entity.FollowUpCandidate
		var t leadTimes
		dest := leadDest(&cand.CampaignLead, &t)
		dest = append(dest, contactDest(&cand.Contact)...)
		dest = append(dest, &cand.FromName, &cand.FromEmail, &cand.FollowUpSubject, &cand.FollowUpBody)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		t.apply(&cand.CampaignLead)
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (r *LeadRepository) FindGenerationQueued(ctx context.Context, limit int) ([]entity.GenerationCandidate, error) {
	query := `
		SELECT ` + leadColumns + `, ` + contactColumns + `,
			ca.name, ca.subject_template, ca.body_template, ca.ai_prompt,
			ca.follow_up_enabled, ca.follow_up_subject, ca.follow_up_body, ca.follow_up_ai_prompt
		FROM campaign_leads cl
		JOIN contacts c ON c.id = cl.contact_id
		JOIN campaigns ca ON ca.id = cl.campaign_id
		WHERE cl.generation_status = 'queued'
		ORDER BY cl.updated_at
		LIMIT $1
	`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.GenerationCandidate
	for rows.Next() {
		var cand entity.GenerationCandidate
		var t leadTimes
		dest := leadDest(&cand.CampaignLead, &t)
		dest = append(dest, contactDest(&cand.Contact)...)
		dest = append(dest,
			&cand.CampaignName, &cand.SubjectTemplate, &cand.BodyTemplate, &cand.AIPrompt,
			&cand.FollowUpEnabled, &cand.FollowUpSubject, &cand.FollowUpBody, &cand.FollowUpAIPrompt,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		t.apply(&cand.CampaignLead)
		out = append(out, cand)
	}
	return out, rows.Err()
}

// ClaimStatus is the transition primitive: a single conditional update that
// succeeds for exactly one caller.
func (r *LeadRepository) ClaimStatus(ctx context.Context, id string, from, to entity.LeadStatus) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClaimFollowUpSend additionally rechecks replied_at, so a reply that landed
// after the selection query still suppresses the follow-up.
func (r *LeadRepository) ClaimFollowUpSend(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = 'sending_follow_up', updated_at = NOW()
		WHERE id = $1 AND status = 'waiting_follow_up' AND replied_at IS NULL
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *LeadRepository) ClaimGeneration(ctx context.Context, id string, from, to entity.GenerationStatus) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET generation_status = $3, updated_at = NOW()
		WHERE id = $1 AND generation_status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkInitialSent persists the subject and body that actually went out, so
// follow-up composition can reference them.
func (r *LeadRepository) MarkInitialSent(ctx context.Context, id string, next entity.LeadStatus, followUpAt *time.Time, subject, body string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = $2,
			email_sent_at = NOW(),
			follow_up_scheduled_for = $3,
			generated_subject = $4,
			generated_body = $5,
			last_error = '',
			updated_at = NOW()
		WHERE id = $1
	`, id, next, followUpAt, subject, body)
	return err
}

func (r *LeadRepository) MarkFollowUpSent(ctx context.Context, id, subject, body string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = 'follow_up_sent',
			follow_up_sent_at = NOW(),
			generated_follow_up_subject = $2,
			generated_follow_up_body = $3,
			last_error = '',
			updated_at = NOW()
		WHERE id = $1
	`, id, subject, body)
	return err
}

func (r *LeadRepository) RecordFailure(ctx context.Context, id string, status entity.LeadStatus, lastError string, retryCount int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = $2, last_error = $3, retry_count = $4, updated_at = NOW()
		WHERE id = $1
	`, id, status, lastError, retryCount)
	return err
}

func (r *LeadRepository) SaveGeneratedContent(ctx context.Context, id, subject, body, followUpSubject, followUpBody string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET generation_status = 'ready',
			generated_subject = $2,
			generated_body = $3,
			generated_follow_up_subject = $4,
			generated_follow_up_body = $5,
			last_error = '',
			updated_at = NOW()
		WHERE id = $1
	`, id, subject, body, followUpSubject, followUpBody)
	return err
}

func (r *LeadRepository) MarkGenerationFailed(ctx context.Context, id, message string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET generation_status = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1
	`, id, message)
	return err
}

// FailStuckGenerating frees leads wedged in "generating" longer than the
// timeout, e.g. after a crash mid-generation.
func (r *LeadRepository) FailStuckGenerating(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET generation_status = 'failed',
			last_error = 'generation timed out',
			updated_at = NOW()
		WHERE generation_status = 'generating'
			AND updated_at < NOW() - $1 * INTERVAL '1 second'
	`, int64(olderThan.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// QueueGeneration resets generation state and clears stale content for the
// given leads.
func (r *LeadRepository) QueueGeneration(ctx context.Context, ids []string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET generation_status = 'queued',
			generated_subject = '',
			generated_body = '',
			generated_follow_up_subject = '',
			generated_follow_up_body = '',
			last_error = '',
			updated_at = NOW()
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *LeadRepository) ListFailedGeneration(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM campaign_leads
		WHERE campaign_id = $1 AND generation_status = 'failed'
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *LeadRepository) MarkReplied(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = 'replied', replied_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *LeadRepository) MarkBounced(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET status = 'bounced', updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *LeadRepository) MarkResearching(ctx context.Context, ids []string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET research_status = 'researching', research_error = '', updated_at = NOW()
		WHERE id = ANY($1)
	`, pq.Array(ids))
	return err
}

func (r *LeadRepository) SaveResearch(ctx context.Context, id, dataJSON string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET research_status = 'complete',
			research_data = $2,
			research_error = '',
			researched_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`, id, dataJSON)
	return err
}

func (r *LeadRepository) MarkResearchFailed(ctx context.Context, id, message string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET research_status = 'failed', research_error = $2, updated_at = NOW()
		WHERE id = $1
	`, id, message)
	return err
}

func (r *LeadRepository) MarkResearchSkipped(ctx context.Context, id, reason string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE campaign_leads
		SET research_status = 'skipped', research_error = $2, updated_at = NOW()
		WHERE id = $1
	`, id, reason)
	return err
}

// Scan plumbing. Nullable timestamps go through sql.NullTime and are copied
// onto the entity pointers after the scan.

type leadTimes struct {
	emailSentAt    sql.NullTime
	followUpAt     sql.NullTime
	followUpSentAt sql.NullTime
	repliedAt      sql.NullTime
	researchedAt   sql.NullTime
}

func (t *leadTimes) apply(lead *entity.CampaignLead) {
	lead.EmailSentAt = timePtr(t.emailSentAt)
	lead.FollowUpScheduledFor = timePtr(t.followUpAt)
	lead.FollowUpSentAt = timePtr(t.followUpSentAt)
	lead.RepliedAt = timePtr(t.repliedAt)
	lead.ResearchedAt = timePtr(t.researchedAt)
}

func leadDest(lead *entity.CampaignLead, t *leadTimes) []any {
	return []any{
		&lead.ID, &lead.CampaignID, &lead.ContactID, &lead.Status, &lead.GenerationStatus,
		&t.emailSentAt, &t.followUpAt, &t.followUpSentAt, &t.repliedAt,
		&lead.GeneratedSubject, &lead.GeneratedBody,
		&lead.GeneratedFollowUpSubject, &lead.GeneratedFollowUpBody,
		&lead.ResearchStatus, &lead.ResearchData, &lead.ResearchError, &t.researchedAt,
		&lead.LastError, &lead.RetryCount, &lead.CreatedAt, &lead.UpdatedAt,
	}
}

func contactDest(c *entity.ContactInfo) []any {
	return []any{&c.Email, &c.FirstName, &c.LastName, &c.Company, &c.JobTitle, &c.Headline}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.CampaignLead, error) {
	lead := &entity.CampaignLead{}
	var t leadTimes
	if err := row.Scan(leadDest(lead, &t)...); err != nil {
		return nil, err
	}
	t.apply(lead)
	return lead, nil
}

func scanSendCandidates(rows *sql.Rows) ([]entity.SendCandidate, error) {
	var out []entity.SendCandidate
	for rows.Next() {
		var cand entity.SendCandidate
		var t leadTimes
		dest := leadDest(&cand.CampaignLead, &t)
		dest = append(dest, contactDest(&cand.Contact)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		t.apply(&cand.CampaignLead)
		out = append(out, cand)
	}
	return out, rows.Err()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
