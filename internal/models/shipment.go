package models

import "time"

// Статусы черновика (двухшаговая ссылка отправителя).
const (
	DraftStatusAwaitingReceiver = "AWAITING_RECEIVER"
	DraftStatusAwaitingApproval = "AWAITING_APPROVAL"
)

// Публичные статусы трек-записи. Показываются клиенту как есть,
// поэтому человекочитаемые, а не UPPER_SNAKE.
const (
	RecordStatusPending        = "Pending"
	RecordStatusCollected      = "Collected"
	RecordStatusInTransit      = "In Transit"
	RecordStatusOutForDelivery = "Out for Delivery"
	RecordStatusDelivered      = "Delivered"
)

// Contact — вложенное значение, без собственного id.
type Contact struct {
	Name              string `json:"name"`
	Address           string `json:"address,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	DestinationOffice string `json:"destinationOffice,omitempty"`
}

// DraftItem хранит позиции черновика в сыром виде: вес и стоимость
// приходят строками из формы отправителя и нормализуются при approve.
type DraftItem struct {
	Description string `json:"description"`
	Weight      string `json:"weight"`
	Cost        string `json:"cost"`
	Quantity    int    `json:"quantity"`
}

type PendingShipment struct {
	ID        uint64      `json:"id"`
	TempID    string      `json:"tempId"`
	Sender    Contact     `json:"sender"`
	Receiver  Contact     `json:"receiver"`
	Items     []DraftItem `json:"items"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Item struct {
	ItemID      string  `json:"itemId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Weight      float64 `json:"weight"`
	Quantity    int     `json:"quantity"`
	Cost        float64 `json:"cost"`
}

// StatusEvent — одна запись истории. Порядок добавления фиксируется
// bigserial id в хранилище; показ сортируется по времени события.
type StatusEvent struct {
	ID        uint64    `json:"-"`
	Status    string    `json:"status"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

type TrackingRecord struct {
	ID               uint64        `json:"id"`
	TrackingNumber   string        `json:"trackingNumber"`
	Sender           Contact       `json:"sender"`
	Receiver         Contact       `json:"receiver"`
	Origin           string        `json:"origin"`
	Destination      string        `json:"destination"`
	Location         string        `json:"location"`
	Status           string        `json:"status"`
	ExpectedDelivery *time.Time    `json:"expectedDelivery,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	Updates          []StatusEvent `json:"updates"`
	Items            []Item        `json:"items"`
}

type Admin struct {
	ID           uint64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// ValidRecordStatus проверяет принадлежность публичному перечню.
func ValidRecordStatus(s string) bool {
	switch s {
	case RecordStatusPending, RecordStatusCollected, RecordStatusInTransit,
		RecordStatusOutForDelivery, RecordStatusDelivered:
		return true
	}
	return false
}

// CanSubmitReceiver: повторная отправка получателем разрешена
// (перезаписывает данные), переход из других состояний — нет.
func CanSubmitReceiver(draftStatus string) bool {
	return draftStatus == DraftStatusAwaitingReceiver || draftStatus == DraftStatusAwaitingApproval
}

// CanApprove: одобрять можно только черновик с заполненным получателем.
func CanApprove(d *PendingShipment) bool {
	return d.Status == DraftStatusAwaitingApproval && d.Receiver.Name != ""
}

// CanTransitionRecord: статус записи меняется только внутри перечня,
// из Delivered выхода нет.
func CanTransitionRecord(from, to string) bool {
	if !ValidRecordStatus(to) {
		return false
	}
	if from == RecordStatusDelivered {
		return to == RecordStatusDelivered
	}
	return true
}
