package usecase

import (
	"fmt"
	"net/mail"
	"strings"
)

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("is not a valid email address")
	}
	return nil
}

func ValidateContactInput(input CreateContactInput) []string {
	var errs []string
	if err := validateEmail(input.Email); err != nil {
		errs = append(errs, "email: "+err.Error())
	}
	return errs
}

func ValidateCampaignInput(input CreateCampaignInput) []string {
	var errs []string

	if strings.TrimSpace(input.Name) == "" {
		errs = append(errs, "name: is required")
	}
	if strings.TrimSpace(input.FromName) == "" {
		errs = append(errs, "from_name: is required")
	}
	if err := validateEmail(input.FromEmail); err != nil {
		errs = append(errs, "from_email: "+err.Error())
	}
	if strings.TrimSpace(input.SubjectTemplate) == "" {
		errs = append(errs, "subject_template: is required")
	}
	if strings.TrimSpace(input.BodyTemplate) == "" {
		errs = append(errs, "body_template: is required")
	}
	if input.FollowUpDelayMinutes != nil && *input.FollowUpDelayMinutes <= 0 {
		errs = append(errs, "follow_up_delay_minutes: must be greater than zero")
	}
	if input.DailyLimit != nil && *input.DailyLimit <= 0 {
		errs = append(errs, "daily_limit: must be greater than zero")
	}

	return errs
}
