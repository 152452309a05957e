package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/entity"
)

func newContactServiceEnv() (*store, *ContactService) {
	s := newStore()
	return s, NewContactService(&fakeContactRepo{s})
}

func TestCreateContactNormalizesEmail(t *testing.T) {
	_, svc := newContactServiceEnv()

	contact, err := svc.Create(context.Background(), "default", CreateContactInput{
		Email:     "  Sarah@Acme.COM ",
		FirstName: "Sarah",
	})

	require.NoError(t, err)
	assert.Equal(t, "sarah@acme.com", contact.Email)
	assert.Equal(t, "{}", contact.CustomData)
	assert.True(t, contact.EmailValid)
}

func TestCreateContactRejectsInvalidEmail(t *testing.T) {
	_, svc := newContactServiceEnv()

	_, err := svc.Create(context.Background(), "default", CreateContactInput{Email: "not-an-email"})

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
}

func TestCreateContactDuplicateEmail(t *testing.T) {
	_, svc := newContactServiceEnv()

	_, err := svc.Create(context.Background(), "default", CreateContactInput{Email: "sarah@acme.com"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "default", CreateContactInput{Email: "sarah@acme.com"})
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicate, de.Code)
}

func TestDeleteContactBlockedByActiveLead(t *testing.T) {
	s, svc := newContactServiceEnv()

	contact, err := svc.Create(context.Background(), "default", CreateContactInput{Email: "sarah@acme.com"})
	require.NoError(t, err)

	lead := pendingLead("lead-1", "camp-1")
	lead.ContactID = contact.ID
	s.addLead(lead, testContact)

	err = svc.Delete(context.Background(), "default", contact.ID)
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidState, de.Code)

	// Terminal lead no longer blocks deletion.
	s.leads["lead-1"].Status = entity.LeadReplied
	require.NoError(t, svc.Delete(context.Background(), "default", contact.ID))
}
