package models

import (
	"encoding/json"
	"time"
)

// Виды отложенных уведомлений в outbox.
const (
	KindEmailReceiverApproved   = "email.receiver_approved"
	KindEmailReceiverDetails    = "email.receiver_details"
	KindEmailAdminSubmission    = "email.admin_submission"
	KindEmailContactForm        = "email.contact_form"
	KindTelegramAdminSubmission = "telegram.admin_submission"
	KindTelegramUserReply       = "telegram.user_reply"
)

const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification — строка outbox. Переход жизненного цикла коммитит её
// в той же транзакции, что и свои данные; доставкой занимается воркер.
type Notification struct {
	ID            uint64
	Kind          string
	Payload       json.RawMessage
	Status        string
	Attempt       int32
	NextAttemptAt time.Time
	LastError     *string
	CreatedAt     time.Time
	SentAt        *time.Time
}

// Payload-структуры по видам.

type ReceiverApprovedPayload struct {
	TrackingNumber string `json:"trackingNumber"`
	ReceiverName   string `json:"receiverName"`
	ReceiverEmail  string `json:"receiverEmail"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
}

type ReceiverDetailsPayload struct {
	Email    string `json:"email"`
	TempID   string `json:"tempId"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

type AdminSubmissionPayload struct {
	TempID  string `json:"tempId"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type UserReplyPayload struct {
	TempID string `json:"tempId"`
	Text   string `json:"text"`
}

type ContactFormPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
