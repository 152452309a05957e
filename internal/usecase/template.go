package usecase

import (
	"strings"

	"github.com/cadencehq/cadence/internal/entity"
)

// ReplaceTemplateVars substitutes the supported placeholders with contact
// data. Missing first name and company fall back to neutral filler so the
// rendered text never contains a bare placeholder.
func ReplaceTemplateVars(template string, contact entity.ContactInfo) string {
	firstName := contact.FirstName
	if firstName == "" {
		firstName = "there"
	}
	company := contact.Company
	if company == "" {
		company = "your company"
	}

	r := strings.NewReplacer(
		"{{first_name}}", firstName,
		"{{last_name}}", contact.LastName,
		"{{company}}", company,
		"{{job_title}}", contact.JobTitle,
		"{{headline}}", contact.Headline,
		"{{email}}", contact.Email,
	)
	return r.Replace(template)
}
