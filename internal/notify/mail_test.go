package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidroute/shipbox/internal/models"
)

type fakeTranslator struct{ prefix string }

func (f fakeTranslator) Translate(_ context.Context, text, _ string) string {
	return f.prefix + text
}

func TestMailer_ReceiverApproved(t *testing.T) {
	m := NewMailer("https://cdn.example.com/logo.png", "https://ship.example.com", "admin@example.com", fakeTranslator{})

	mail, err := m.ReceiverApproved(models.ReceiverApprovedPayload{
		TrackingNumber: "CRJ-123456789",
		ReceiverName:   "Jane Doe",
		ReceiverEmail:  "jane@example.com",
		Origin:         "London",
		Destination:    "Paris",
	})
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", mail.To)
	require.Equal(t, "Your Shipment Has Been Approved - CRJ-123456789", mail.Subject)
	require.Contains(t, mail.HTML, "CRJ-123456789")
	require.Contains(t, mail.HTML, "Jane Doe")
	require.Contains(t, mail.HTML, "logo.png")
}

func TestMailer_ReceiverDetails_Translated(t *testing.T) {
	m := NewMailer("", "", "admin@example.com", fakeTranslator{prefix: "[es] "})

	mail, err := m.ReceiverDetails(context.Background(), models.ReceiverDetailsPayload{
		Email:    "jane@example.com",
		TempID:   "TMP-AAAA1111",
		Name:     "Jane",
		Language: "es",
	})
	require.NoError(t, err)
	require.Equal(t, "[es] Receiver Details Received", mail.Subject)
	require.Contains(t, mail.HTML, "TMP-AAAA1111")
	require.True(t, strings.Contains(mail.HTML, "[es] Dear Jane,"))
}

func TestMailer_ReceiverDetails_EnglishSkipsTranslator(t *testing.T) {
	m := NewMailer("", "", "admin@example.com", fakeTranslator{prefix: "BOOM "})

	mail, err := m.ReceiverDetails(context.Background(), models.ReceiverDetailsPayload{
		Email:  "jane@example.com",
		TempID: "TMP-AAAA1111",
		Name:   "Jane",
	})
	require.NoError(t, err)
	require.Equal(t, "Receiver Details Received", mail.Subject)
	require.NotContains(t, mail.HTML, "BOOM")
}

func TestMailer_AdminSubmissionAndContact(t *testing.T) {
	m := NewMailer("", "", "admin@example.com", fakeTranslator{})

	sub, err := m.AdminSubmission(models.AdminSubmissionPayload{
		TempID: "TMP-AAAA1111",
		Name:   "Jane",
		Phone:  "+44 1234",
	})
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", sub.To)
	require.Contains(t, sub.HTML, "+44 1234")
	require.NotContains(t, sub.HTML, "Email:")

	contact, err := m.ContactForm(models.ContactFormPayload{
		Name:    "Bob",
		Email:   "bob@example.com",
		Subject: "Lost parcel",
		Message: "Where is my parcel?",
	})
	require.NoError(t, err)
	require.Equal(t, "Contact: Lost parcel", contact.Subject)
	require.Contains(t, contact.HTML, "Where is my parcel?")
}

func TestAdminSubmissionText(t *testing.T) {
	text := AdminSubmissionText(models.AdminSubmissionPayload{
		TempID: "TMP-AAAA1111",
		Name:   "Jane",
		Email:  "jane@example.com",
	})
	require.Contains(t, text, "TMP-AAAA1111")
	require.Contains(t, text, "jane@example.com")
	require.NotContains(t, text, "Phone:")
}
