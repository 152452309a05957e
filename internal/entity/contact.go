package entity

import (
	"context"
	"time"
)

type Contact struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	Company     string    `json:"company,omitempty"`
	JobTitle    string    `json:"job_title,omitempty"`
	Headline    string    `json:"headline,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	WebsiteURL  string    `json:"website_url,omitempty"`
	Location    string    `json:"location,omitempty"`
	LinkedinURL string    `json:"linkedin_url,omitempty"`
	CustomData  string    `json:"custom_data"` // JSON blob
	EmailValid  bool      `json:"email_valid"`
	CreatedAt   time.Time `json:"created_at"`
}

type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *Contact) error
	FindByID(ctx context.Context, userID, id string) (*Contact, error)
	List(ctx context.Context, userID string) ([]Contact, error)
	Update(ctx context.Context, c *Contact) error
	// Delete fails when the contact is attached to a lead that has not
	// reached a terminal state.
	Delete(ctx context.Context, userID, id string) error
	HasActiveLead(ctx context.Context, contactID string) (bool, error)
}
