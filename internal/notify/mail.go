package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/pkg/errors"

	"github.com/rapidroute/shipbox/internal/models"
)

// Translator переводит текст письма на язык получателя. Реализация
// может молча вернуть оригинал — рендеру это безразлично.
type Translator interface {
	Translate(ctx context.Context, text, target string) string
}

type RenderedMail struct {
	To      string
	Subject string
	HTML    string
}

// Mailer рендерит письма по payload'ам outbox. Стандартный html/template:
// шаблоны маленькие и живут прямо в бинаре.
type Mailer struct {
	logoURL    string
	baseURL    string
	adminEmail string
	translator Translator
}

func NewMailer(logoURL, baseURL, adminEmail string, translator Translator) *Mailer {
	return &Mailer{
		logoURL:    logoURL,
		baseURL:    baseURL,
		adminEmail: adminEmail,
		translator: translator,
	}
}

var approvedTmpl = template.Must(template.New("approved").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  {{if .LogoURL}}<img src="{{.LogoURL}}" alt="Rapid Route Logistics" style="max-width: 180px; margin-bottom: 20px;"/>{{end}}
  <h2>Your Shipment Has Been Approved</h2>
  <p>Dear {{.Name}},</p>
  <p>Your shipment has been approved and is now being processed.</p>
  <p><strong>Tracking Number:</strong> {{.TrackingNumber}}</p>
  <p><strong>From:</strong> {{.Origin}}<br/><strong>To:</strong> {{.Destination}}</p>
  <p>You can track your parcel at any time{{if .TrackURL}} at <a href="{{.TrackURL}}">{{.TrackURL}}</a>{{end}} using the tracking number above.</p>
  <p>Best regards,<br/>Rapid Route Logistics</p>
</div>`))

var detailsTmpl = template.Must(template.New("details").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  {{if .LogoURL}}<img src="{{.LogoURL}}" alt="Rapid Route Logistics" style="max-width: 180px; margin-bottom: 20px;"/>{{end}}
  <h2>{{.Heading}}</h2>
  <p>{{.Greeting}}</p>
  <p>{{.Body}}</p>
  <p><strong>{{.RefLabel}}:</strong> {{.TempID}}</p>
  <p>{{.Closing}}<br/>Rapid Route Logistics</p>
</div>`))

var adminSubmissionTmpl = template.Must(template.New("adminSubmission").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>New Receiver Submission</h2>
  <p>A receiver has filled in their details for shipment <strong>{{.TempID}}</strong>.</p>
  <ul>
    <li><strong>Name:</strong> {{.Name}}</li>
    {{if .Email}}<li><strong>Email:</strong> {{.Email}}</li>{{end}}
    {{if .Phone}}<li><strong>Phone:</strong> {{.Phone}}</li>{{end}}
    {{if .Address}}<li><strong>Address:</strong> {{.Address}}</li>{{end}}
  </ul>
  <p>Review it in the admin dashboard.</p>
</div>`))

var contactTmpl = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Contact Form Message</h2>
  <p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
  <p><strong>Subject:</strong> {{.Subject}}</p>
  <p>{{.Message}}</p>
</div>`))

func (m *Mailer) ReceiverApproved(p models.ReceiverApprovedPayload) (RenderedMail, error) {
	name := p.ReceiverName
	if name == "" {
		name = "Customer"
	}
	trackURL := ""
	if m.baseURL != "" {
		trackURL = m.baseURL + "/track?number=" + p.TrackingNumber
	}
	html, err := render(approvedTmpl, map[string]string{
		"LogoURL":        m.logoURL,
		"Name":           name,
		"TrackingNumber": p.TrackingNumber,
		"Origin":         p.Origin,
		"Destination":    p.Destination,
		"TrackURL":       trackURL,
	})
	if err != nil {
		return RenderedMail{}, err
	}
	return RenderedMail{
		To:      p.ReceiverEmail,
		Subject: "Your Shipment Has Been Approved - " + p.TrackingNumber,
		HTML:    html,
	}, nil
}

// ReceiverDetails — подтверждение получателю, что его данные приняты.
// Текст переводится на язык формы, если он известен.
func (m *Mailer) ReceiverDetails(ctx context.Context, p models.ReceiverDetailsPayload) (RenderedMail, error) {
	name := p.Name
	if name == "" {
		name = "Customer"
	}

	subject := "Receiver Details Received"
	heading := "Receiver Details Received"
	greeting := fmt.Sprintf("Dear %s,", name)
	body := "Thank you for submitting your details. Your shipment is now awaiting approval, and we will notify you once it has been processed."
	refLabel := "Reference"
	closing := "Best regards,"

	if p.Language != "" && p.Language != "en" {
		subject = m.translator.Translate(ctx, subject, p.Language)
		heading = m.translator.Translate(ctx, heading, p.Language)
		greeting = m.translator.Translate(ctx, greeting, p.Language)
		body = m.translator.Translate(ctx, body, p.Language)
		refLabel = m.translator.Translate(ctx, refLabel, p.Language)
		closing = m.translator.Translate(ctx, closing, p.Language)
	}

	html, err := render(detailsTmpl, map[string]string{
		"LogoURL":  m.logoURL,
		"Heading":  heading,
		"Greeting": greeting,
		"Body":     body,
		"RefLabel": refLabel,
		"TempID":   p.TempID,
		"Closing":  closing,
	})
	if err != nil {
		return RenderedMail{}, err
	}
	return RenderedMail{To: p.Email, Subject: subject, HTML: html}, nil
}

func (m *Mailer) AdminSubmission(p models.AdminSubmissionPayload) (RenderedMail, error) {
	html, err := render(adminSubmissionTmpl, p)
	if err != nil {
		return RenderedMail{}, err
	}
	return RenderedMail{
		To:      m.adminEmail,
		Subject: "New Receiver Submission - " + p.TempID,
		HTML:    html,
	}, nil
}

func (m *Mailer) ContactForm(p models.ContactFormPayload) (RenderedMail, error) {
	html, err := render(contactTmpl, p)
	if err != nil {
		return RenderedMail{}, err
	}
	subject := p.Subject
	if subject == "" {
		subject = "Contact form message"
	}
	return RenderedMail{
		To:      m.adminEmail,
		Subject: "Contact: " + subject,
		HTML:    html,
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render mail template")
	}
	return buf.String(), nil
}
