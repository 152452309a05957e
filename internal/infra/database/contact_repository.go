package database

import (
	"context"
	"database/sql"

	"github.com/cadencehq/cadence/internal/entity"
)

type ContactRepository struct {
	DB *sql.DB
}

const contactFullColumns = `
	id, user_id, email, first_name, last_name, company, job_title, headline,
	phone_number, website_url, location, linkedin_url, custom_data, email_valid, created_at`

func (r *ContactRepository) Create(ctx context.Context, c *entity.Contact) error {
	query := `
		INSERT INTO contacts (
			id, user_id, email, first_name, last_name, company, job_title, headline,
			phone_number, website_url, location, linkedin_url, custom_data, email_valid
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	return r.DB.QueryRowContext(
		ctx,
		query,
		c.ID, c.UserID, c.Email, c.FirstName, c.LastName, c.Company, c.JobTitle, c.Headline,
		c.PhoneNumber, c.WebsiteURL, c.Location, c.LinkedinURL, c.CustomData, c.EmailValid,
	).Scan(&c.CreatedAt)
}

func (r *ContactRepository) FindByID(ctx context.Context, userID, id string) (*entity.Contact, error) {
	query := `SELECT ` + contactFullColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`
	return scanContact(r.DB.QueryRowContext(ctx, query, id, userID))
}

func (r *ContactRepository) List(ctx context.Context, userID string) ([]entity.Contact, error) {
	query := `SELECT ` + contactFullColumns + ` FROM contacts WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ContactRepository) Update(ctx context.Context, c *entity.Contact) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE contacts
		SET email = $3, first_name = $4, last_name = $5, company = $6,
			job_title = $7, headline = $8, phone_number = $9, website_url = $10,
			location = $11, linkedin_url = $12, custom_data = $13, email_valid = $14
		WHERE id = $1 AND user_id = $2
	`,
		c.ID, c.UserID, c.Email, c.FirstName, c.LastName, c.Company,
		c.JobTitle, c.Headline, c.PhoneNumber, c.WebsiteURL,
		c.Location, c.LinkedinURL, c.CustomData, c.EmailValid,
	)
	return err
}

func (r *ContactRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return err
}

// HasActiveLead reports whether the contact belongs to any lead the engine
// may still act on.
func (r *ContactRepository) HasActiveLead(ctx context.Context, contactID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM campaign_leads
			WHERE contact_id = $1
				AND status NOT IN ('completed', 'replied', 'bounced', 'failed')
		)
	`, contactID).Scan(&exists)
	return exists, err
}

func scanContact(row rowScanner) (*entity.Contact, error) {
	c := &entity.Contact{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.Email, &c.FirstName, &c.LastName, &c.Company,
		&c.JobTitle, &c.Headline, &c.PhoneNumber, &c.WebsiteURL,
		&c.Location, &c.LinkedinURL, &c.CustomData, &c.EmailValid, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
