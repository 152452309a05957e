package database

import (
	"context"
	"database/sql"

	"github.com/cadencehq/cadence/internal/entity"
)

type EmailLogRepository struct {
	DB *sql.DB
}

func (r *EmailLogRepository) Append(ctx context.Context, log *entity.EmailLog) error {
	query := `
		INSERT INTO email_logs (id, campaign_lead_id, action_type, status, message_id, error_message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.DB.QueryRowContext(
		ctx,
		query,
		log.ID,
		log.CampaignLeadID,
		log.ActionType,
		log.Status,
		log.ProviderMessageID,
		log.ErrorMessage,
		log.Metadata,
	).Scan(&log.CreatedAt)
}

// CountInitialSentToday counts successful initial sends since UTC midnight.
// The daily limit window resets on the calendar day, not a rolling 24 hours.
func (r *EmailLogRepository) CountInitialSentToday(ctx context.Context, campaignID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM email_logs el
		JOIN campaign_leads cl ON cl.id = el.campaign_lead_id
		WHERE cl.campaign_id = $1
			AND el.action_type = 'initial_email'
			AND el.status = 'sent'
			AND el.created_at >= date_trunc('day', NOW() AT TIME ZONE 'utc') AT TIME ZONE 'utc'
	`, campaignID).Scan(&count)
	return count, err
}

func (r *EmailLogRepository) ListByLead(ctx context.Context, leadID string) ([]entity.EmailLog, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, campaign_lead_id, action_type, status, message_id, error_message, metadata, created_at
		FROM email_logs
		WHERE campaign_lead_id = $1
		ORDER BY created_at
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.EmailLog
	for rows.Next() {
		var log entity.EmailLog
		if err := rows.Scan(
			&log.ID, &log.CampaignLeadID, &log.ActionType, &log.Status,
			&log.ProviderMessageID, &log.ErrorMessage, &log.Metadata, &log.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, rows.Err()
}
