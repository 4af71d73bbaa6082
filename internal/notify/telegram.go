package notify

import (
	"fmt"
	"strings"

	"github.com/rapidroute/shipbox/internal/models"
)

// Тексты для телеграма. Обычный plain text, без markdown — меньше
// сюрпризов с экранированием.

func AdminSubmissionText(p models.AdminSubmissionPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 New receiver submission for %s\n", p.TempID)
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", p.Email)
	}
	if p.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", p.Phone)
	}
	if p.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", p.Address)
	}
	b.WriteString("Review it in the admin dashboard.")
	return b.String()
}

func UserReplyText(p models.UserReplyPayload) string {
	return p.Text
}
