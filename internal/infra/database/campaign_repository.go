package database

import (
	"context"
	"database/sql"

	"github.com/cadencehq/cadence/internal/entity"
)

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `
	id, user_id, name, status, from_name, from_email,
	subject_template, body_template, ai_prompt,
	follow_up_enabled, follow_up_delay_minutes,
	follow_up_subject, follow_up_body, follow_up_ai_prompt,
	daily_limit, created_at, updated_at`

func (r *CampaignRepository) Create(ctx context.Context, c *entity.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, user_id, name, status, from_name, from_email,
			subject_template, body_template, ai_prompt,
			follow_up_enabled, follow_up_delay_minutes,
			follow_up_subject, follow_up_body, follow_up_ai_prompt,
			daily_limit
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	return r.DB.QueryRowContext(
		ctx,
		query,
		c.ID, c.UserID, c.Name, c.Status, c.FromName, c.FromEmail,
		c.SubjectTemplate, c.BodyTemplate, c.AIPrompt,
		c.FollowUpEnabled, c.FollowUpDelayMinutes,
		c.FollowUpSubject, c.FollowUpBody, c.FollowUpAIPrompt,
		c.DailyLimit,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepository) FindByID(ctx context.Context, userID, id string) (*entity.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND user_id = $2`
	return scanCampaign(r.DB.QueryRowContext(ctx, query, id, userID))
}

func (r *CampaignRepository) List(ctx context.Context, userID string) ([]entity.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (r *CampaignRepository) ListActive(ctx context.Context) ([]entity.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = 'active' ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (r *CampaignRepository) Update(ctx context.Context, c *entity.Campaign) error {
	query := `
		UPDATE campaigns
		SET name = $3, from_name = $4, from_email = $5,
			subject_template = $6, body_template = $7, ai_prompt = $8,
			follow_up_enabled = $9, follow_up_delay_minutes = $10,
			follow_up_subject = $11, follow_up_body = $12, follow_up_ai_prompt = $13,
			daily_limit = $14, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	return r.DB.QueryRowContext(
		ctx,
		query,
		c.ID, c.UserID, c.Name, c.FromName, c.FromEmail,
		c.SubjectTemplate, c.BodyTemplate, c.AIPrompt,
		c.FollowUpEnabled, c.FollowUpDelayMinutes,
		c.FollowUpSubject, c.FollowUpBody, c.FollowUpAIPrompt,
		c.DailyLimit,
	).Scan(&c.UpdatedAt)
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, status entity.CampaignStatus) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	return err
}

func (r *CampaignRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM campaigns WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return err
}

func (r *CampaignRepository) Stats(ctx context.Context, id string) (*entity.CampaignStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'sending'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'waiting_follow_up'),
			COUNT(*) FILTER (WHERE status = 'sending_follow_up'),
			COUNT(*) FILTER (WHERE status = 'follow_up_sent'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'replied'),
			COUNT(*) FILTER (WHERE status = 'bounced'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM campaign_leads
		WHERE campaign_id = $1
	`
	stats := &entity.CampaignStats{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&stats.Total, &stats.Pending, &stats.Sending, &stats.Sent,
		&stats.WaitingFollowUp, &stats.SendingFollowUp, &stats.FollowUpSent,
		&stats.Completed, &stats.Replied, &stats.Bounced, &stats.Failed,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func scanCampaign(row rowScanner) (*entity.Campaign, error) {
	c := &entity.Campaign{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Status, &c.FromName, &c.FromEmail,
		&c.SubjectTemplate, &c.BodyTemplate, &c.AIPrompt,
		&c.FollowUpEnabled, &c.FollowUpDelayMinutes,
		&c.FollowUpSubject, &c.FollowUpBody, &c.FollowUpAIPrompt,
		&c.DailyLimit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanCampaigns(rows *sql.Rows) ([]entity.Campaign, error) {
	var out []entity.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
