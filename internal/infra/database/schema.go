package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		job_title TEXT NOT NULL DEFAULT '',
		headline TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		website_url TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		linkedin_url TEXT NOT NULL DEFAULT '',
		custom_data JSONB NOT NULL DEFAULT '{}',
		email_valid BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, email)
	)`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		from_name TEXT NOT NULL,
		from_email TEXT NOT NULL,
		subject_template TEXT NOT NULL,
		body_template TEXT NOT NULL,
		ai_prompt TEXT NOT NULL DEFAULT '',
		follow_up_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		follow_up_delay_minutes INTEGER NOT NULL DEFAULT 2880,
		follow_up_subject TEXT NOT NULL DEFAULT '',
		follow_up_body TEXT NOT NULL DEFAULT '',
		follow_up_ai_prompt TEXT NOT NULL DEFAULT '',
		daily_limit INTEGER NOT NULL DEFAULT 50,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS campaign_leads (
		id UUID PRIMARY KEY,
		campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		contact_id UUID NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'pending',
		generation_status TEXT NOT NULL DEFAULT 'not_started',
		email_sent_at TIMESTAMPTZ,
		follow_up_scheduled_for TIMESTAMPTZ,
		follow_up_sent_at TIMESTAMPTZ,
		replied_at TIMESTAMPTZ,
		generated_subject TEXT NOT NULL DEFAULT '',
		generated_body TEXT NOT NULL DEFAULT '',
		generated_follow_up_subject TEXT NOT NULL DEFAULT '',
		generated_follow_up_body TEXT NOT NULL DEFAULT '',
		research_status TEXT NOT NULL DEFAULT 'not_started',
		research_data TEXT NOT NULL DEFAULT '',
		research_error TEXT NOT NULL DEFAULT '',
		researched_at TIMESTAMPTZ,
		last_error TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (campaign_id, contact_id)
	)`,

	`CREATE TABLE IF NOT EXISTS email_logs (
		id UUID PRIMARY KEY,
		campaign_lead_id UUID NOT NULL REFERENCES campaign_leads(id) ON DELETE CASCADE,
		action_type TEXT NOT NULL,
		status TEXT NOT NULL,
		message_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_leads_campaign_status ON campaign_leads (campaign_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_follow_up_due ON campaign_leads (follow_up_scheduled_for) WHERE status = 'waiting_follow_up'`,
	`CREATE INDEX IF NOT EXISTS idx_leads_generation ON campaign_leads (generation_status)`,
	`CREATE INDEX IF NOT EXISTS idx_email_logs_lead ON email_logs (campaign_lead_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_email_logs_action_day ON email_logs (action_type, status, created_at)`,
}

// EnsureSchema creates the tables and indexes when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
