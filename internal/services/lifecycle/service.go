package lifecycle

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/models"
)

// Окно ожидаемой доставки при одобрении черновика.
const deliveryOffset = 5 * 24 * time.Hour

type Repository interface {
	CreateDraft(ctx context.Context, d *models.PendingShipment) (uint64, error)
	GetDraftByID(ctx context.Context, id uint64) (*models.PendingShipment, error)
	GetDraftByTempID(ctx context.Context, tempID string) (*models.PendingShipment, error)
	ListDrafts(ctx context.Context) ([]*models.PendingShipment, error)
	SubmitReceiver(ctx context.Context, tempID string, receiver models.Contact, notifications []*models.Notification) (*models.PendingShipment, error)
	DeleteDraft(ctx context.Context, id uint64) error

	CreateRecord(ctx context.Context, r *models.TrackingRecord) (*models.TrackingRecord, error)
	ApproveDraft(ctx context.Context, draftID uint64, r *models.TrackingRecord, notifications []*models.Notification) (*models.TrackingRecord, error)
	GetRecordByTrackingNumber(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error)
	ListRecords(ctx context.Context) ([]*models.TrackingRecord, error)
	AppendStatusUpdate(ctx context.Context, trackingNumber, status, location string, ts time.Time) (*models.TrackingRecord, error)
	SetExpectedDelivery(ctx context.Context, trackingNumber string, t time.Time) (*models.TrackingRecord, error)
	DeleteRecord(ctx context.Context, id uint64) error

	Enqueue(ctx context.Context, notifications []*models.Notification) error
}

type Service struct {
	repo Repository

	now func() time.Time
}

func New(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CreateDraft регистрирует черновик от отправителя. Никого не уведомляет.
func (s *Service) CreateDraft(ctx context.Context, sender models.Contact, items []models.DraftItem) (string, error) {
	if strings.TrimSpace(sender.Name) == "" {
		return "", apperrors.Validation("sender name is required")
	}
	if len(items) == 0 {
		return "", apperrors.Validation("at least one item is required")
	}

	clean := make([]models.DraftItem, 0, len(items))
	for i, it := range items {
		if it.Description == "" {
			it.Description = "Item " + strconv.Itoa(i+1)
		}
		if it.Cost == "" {
			it.Cost = "0"
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		clean = append(clean, it)
	}

	tempID := NewTempID()
	_, err := s.repo.CreateDraft(ctx, &models.PendingShipment{
		TempID: tempID,
		Sender: sender,
		Items:  clean,
		Status: models.DraftStatusAwaitingReceiver,
	})
	if err != nil {
		return "", err
	}
	return tempID, nil
}

// SubmitReceiver перезаписывает получателя (повторная отправка разрешена)
// и кладёт в outbox письмо и телеграм админу плюс ответ пользователю,
// если чат уже слинкован. Уведомления шлются на каждый вызов.
func (s *Service) SubmitReceiver(ctx context.Context, tempID string, receiver models.Contact) (*models.PendingShipment, error) {
	if strings.TrimSpace(receiver.Name) == "" {
		return nil, apperrors.Validation("receiver name is required")
	}

	sub := models.AdminSubmissionPayload{
		TempID:  tempID,
		Name:    receiver.Name,
		Email:   receiver.Email,
		Phone:   receiver.Phone,
		Address: receiver.Address,
	}
	reply := models.UserReplyPayload{
		TempID: tempID,
		Text:   "Your details were received. Our customer care team will contact you shortly.",
	}

	return s.repo.SubmitReceiver(ctx, tempID, receiver, []*models.Notification{
		notification(models.KindEmailAdminSubmission, sub),
		notification(models.KindTelegramAdminSubmission, sub),
		notification(models.KindTelegramUserReply, reply),
	})
}

// Approve конвертирует черновик в трек-запись. Запись, письмо получателю
// и удаление черновика коммитятся одной транзакцией; при коллизии номера
// вся операция падает с Duplicate и повторяется вызывающим.
func (s *Service) Approve(ctx context.Context, draftID uint64) (*models.TrackingRecord, error) {
	draft, err := s.repo.GetDraftByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !models.CanApprove(draft) {
		return nil, apperrors.Validationf("draft %s is %s", draft.TempID, draft.Status)
	}

	now := s.now()
	origin := fallback(draft.Sender.Address, "Unknown")
	location := fallback(draft.Sender.Address, "Warehouse")
	expected := now.Add(deliveryOffset)

	rec := &models.TrackingRecord{
		TrackingNumber:   NewTrackingNumber(),
		Sender:           draft.Sender,
		Receiver:         draft.Receiver,
		Origin:           origin,
		Destination:      fallback(draft.Receiver.Address, "Unknown"),
		Location:         location,
		Status:           models.RecordStatusPending,
		ExpectedDelivery: &expected,
		Updates: []models.StatusEvent{
			{Status: "Created", Location: location, Timestamp: now},
		},
		Items: draftItems(draft.Items),
	}

	var notifications []*models.Notification
	if draft.Receiver.Email != "" {
		notifications = append(notifications, notification(models.KindEmailReceiverApproved, models.ReceiverApprovedPayload{
			TrackingNumber: rec.TrackingNumber,
			ReceiverName:   draft.Receiver.Name,
			ReceiverEmail:  draft.Receiver.Email,
			Origin:         rec.Origin,
			Destination:    rec.Destination,
		}))
	}

	return s.repo.ApproveDraft(ctx, draftID, rec, notifications)
}

// Reject удаляет черновик без уведомлений; повторный вызов — NotFound.
func (s *Service) Reject(ctx context.Context, draftID uint64) error {
	return s.repo.DeleteDraft(ctx, draftID)
}

type RecordInput struct {
	Sender           models.Contact `json:"sender"`
	Receiver         models.Contact `json:"receiver"`
	Origin           string         `json:"origin"`
	Destination      string         `json:"destination"`
	Location         string         `json:"location"`
	Status           string         `json:"status"`
	ExpectedDelivery *time.Time     `json:"expectedDelivery"`
	Items            []models.Item  `json:"items"`
}

// CreateRecord — ручное создание записи админом, минуя черновик.
func (s *Service) CreateRecord(ctx context.Context, in RecordInput) (*models.TrackingRecord, error) {
	if strings.TrimSpace(in.Sender.Name) == "" {
		return nil, apperrors.Validation("sender name is required")
	}
	if strings.TrimSpace(in.Receiver.Name) == "" {
		return nil, apperrors.Validation("receiver name is required")
	}
	if in.Origin == "" || in.Destination == "" {
		return nil, apperrors.Validation("origin and destination are required")
	}

	status := in.Status
	if status == "" {
		status = models.RecordStatusCollected
	}
	if !models.ValidRecordStatus(status) {
		return nil, apperrors.Validationf("unknown status %q", status)
	}

	location := fallback(in.Location, "Warehouse")
	items := make([]models.Item, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ItemID == "" {
			it.ItemID = newItemID()
		}
		if it.Name == "" {
			it.Name = fallback(it.Description, "Unnamed Item")
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		items = append(items, it)
	}

	return s.repo.CreateRecord(ctx, &models.TrackingRecord{
		TrackingNumber:   NewTrackingNumber(),
		Sender:           in.Sender,
		Receiver:         in.Receiver,
		Origin:           in.Origin,
		Destination:      in.Destination,
		Location:         location,
		Status:           status,
		ExpectedDelivery: in.ExpectedDelivery,
		Updates: []models.StatusEvent{
			{Status: status, Location: location, Timestamp: s.now()},
		},
		Items: items,
	})
}

// RecordStatusUpdate дописывает событие истории и перезаписывает
// статус/локацию. Статусы вне публичного перечня отклоняются.
func (s *Service) RecordStatusUpdate(ctx context.Context, trackingNumber, status, location string) (*models.TrackingRecord, error) {
	if !models.ValidRecordStatus(status) {
		return nil, apperrors.Validationf("unknown status %q", status)
	}
	return s.repo.AppendStatusUpdate(ctx, trackingNumber, status, fallback(location, "Unknown"), s.now())
}

// ChangeExpectedDelivery меняет только дату, событие не дописывается.
func (s *Service) ChangeExpectedDelivery(ctx context.Context, trackingNumber string, t time.Time) (*models.TrackingRecord, error) {
	if t.IsZero() {
		return nil, apperrors.Validation("expected delivery date is required")
	}
	return s.repo.SetExpectedDelivery(ctx, trackingNumber, t)
}

func (s *Service) LookupPublic(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error) {
	return s.repo.GetRecordByTrackingNumber(ctx, trackingNumber)
}

func (s *Service) ListDrafts(ctx context.Context) ([]*models.PendingShipment, error) {
	return s.repo.ListDrafts(ctx)
}

func (s *Service) ListRecords(ctx context.Context) ([]*models.TrackingRecord, error) {
	return s.repo.ListRecords(ctx)
}

func (s *Service) DeleteRecord(ctx context.Context, id uint64) error {
	return s.repo.DeleteRecord(ctx, id)
}

// NotifyReceiverDetails ставит в очередь письмо «данные получены» получателю.
func (s *Service) NotifyReceiverDetails(ctx context.Context, p models.ReceiverDetailsPayload) error {
	if p.Email == "" || p.TempID == "" || p.Name == "" {
		return apperrors.Validation("email, tempId and name are required")
	}
	return s.repo.Enqueue(ctx, []*models.Notification{notification(models.KindEmailReceiverDetails, p)})
}

// NotifyAdminSubmission ставит в очередь телеграм-уведомление админу.
func (s *Service) NotifyAdminSubmission(ctx context.Context, p models.AdminSubmissionPayload) error {
	if p.TempID == "" {
		return apperrors.Validation("tempId is required")
	}
	return s.repo.Enqueue(ctx, []*models.Notification{notification(models.KindTelegramAdminSubmission, p)})
}

// SubmitContactForm ставит в очередь письмо с формы обратной связи.
func (s *Service) SubmitContactForm(ctx context.Context, p models.ContactFormPayload) error {
	if p.Name == "" || p.Email == "" || p.Subject == "" || p.Message == "" {
		return apperrors.Validation("all fields are required")
	}
	return s.repo.Enqueue(ctx, []*models.Notification{notification(models.KindEmailContactForm, p)})
}

func draftItems(items []models.DraftItem) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		out = append(out, models.Item{
			ItemID:      newItemID(),
			Name:        fallback(it.Description, "Unnamed Item"),
			Description: it.Description,
			Weight:      parseAmount(it.Weight),
			Quantity:    qty,
			Cost:        parseAmount(it.Cost),
		})
	}
	return out
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func newItemID() string {
	return "TEMP-" + uuid.NewString()
}

func notification(kind string, payload any) *models.Notification {
	b, _ := json.Marshal(payload)
	return &models.Notification{Kind: kind, Payload: b}
}
