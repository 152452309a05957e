package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/entity"
)

type CreateContactInput struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Headline    string `json:"headline,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	Location    string `json:"location,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
	CustomData  string `json:"custom_data,omitempty"`
}

type UpdateContactInput struct {
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Company     *string `json:"company,omitempty"`
	JobTitle    *string `json:"job_title,omitempty"`
	Headline    *string `json:"headline,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	WebsiteURL  *string `json:"website_url,omitempty"`
	Location    *string `json:"location,omitempty"`
	LinkedinURL *string `json:"linkedin_url,omitempty"`
	CustomData  *string `json:"custom_data,omitempty"`
}

type ContactService struct {
	contacts entity.ContactRepositoryInterface
}

func NewContactService(contacts entity.ContactRepositoryInterface) *ContactService {
	return &ContactService{contacts: contacts}
}

func (s *ContactService) Create(ctx context.Context, userID string, input CreateContactInput) (*entity.Contact, error) {
	if errs := ValidateContactInput(input); len(errs) > 0 {
		return nil, ValidationFailed(errs)
	}

	customData := strings.TrimSpace(input.CustomData)
	if customData == "" {
		customData = "{}"
	}

	contact := &entity.Contact{
		ID:          uuid.New().String(),
		UserID:      userID,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Company:     strings.TrimSpace(input.Company),
		JobTitle:    strings.TrimSpace(input.JobTitle),
		Headline:    strings.TrimSpace(input.Headline),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		WebsiteURL:  strings.TrimSpace(input.WebsiteURL),
		Location:    strings.TrimSpace(input.Location),
		LinkedinURL: strings.TrimSpace(input.LinkedinURL),
		CustomData:  customData,
		EmailValid:  true,
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return nil, NewDomainError(CodeDuplicate, "a contact with this email already exists")
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

func (s *ContactService) Get(ctx context.Context, userID, id string) (*entity.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, userID, id)
	if err != nil {
		return nil, NotFound("contact not found")
	}
	return contact, nil
}

func (s *ContactService) List(ctx context.Context, userID string) ([]entity.Contact, error) {
	return s.contacts.List(ctx, userID)
}

func (s *ContactService) Update(ctx context.Context, userID, id string, input UpdateContactInput) (*entity.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, userID, id)
	if err != nil {
		return nil, NotFound("contact not found")
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if err := validateEmail(email); err != nil {
			return nil, ValidationFailed([]string{"email: " + err.Error()})
		}
		contact.Email = email
	}
	if input.FirstName != nil {
		contact.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		contact.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Company != nil {
		contact.Company = strings.TrimSpace(*input.Company)
	}
	if input.JobTitle != nil {
		contact.JobTitle = strings.TrimSpace(*input.JobTitle)
	}
	if input.Headline != nil {
		contact.Headline = strings.TrimSpace(*input.Headline)
	}
	if input.PhoneNumber != nil {
		contact.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.WebsiteURL != nil {
		contact.WebsiteURL = strings.TrimSpace(*input.WebsiteURL)
	}
	if input.Location != nil {
		contact.Location = strings.TrimSpace(*input.Location)
	}
	if input.LinkedinURL != nil {
		contact.LinkedinURL = strings.TrimSpace(*input.LinkedinURL)
	}
	if input.CustomData != nil {
		contact.CustomData = strings.TrimSpace(*input.CustomData)
		if contact.CustomData == "" {
			contact.CustomData = "{}"
		}
	}

	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

// Delete refuses while the contact still belongs to an active lead, so a
// running campaign never loses the row mid-send.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	contact, err := s.contacts.FindByID(ctx, userID, id)
	if err != nil {
		return NotFound("contact not found")
	}

	active, err := s.contacts.HasActiveLead(ctx, id)
	if err != nil {
		return fmt.Errorf("check active leads: %w", err)
	}
	if active {
		return InvalidState("contact is part of an active campaign lead")
	}

	if err := s.contacts.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	log.Printf("[contacts] contact %s deleted", contact.Email)
	return nil
}
