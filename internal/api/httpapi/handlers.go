package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rapidroute/shipbox/internal/apperrors"
	"github.com/rapidroute/shipbox/internal/models"
	"github.com/rapidroute/shipbox/internal/services/auth"
	"github.com/rapidroute/shipbox/internal/services/lifecycle"
)

// Handlers — REST-слой поверх сервисов. Вся доменная логика живёт
// в lifecycle, здесь только декодирование и коды ответов.
type Handlers struct {
	life    *lifecycle.Service
	auth    *auth.Service
	baseURL string
}

func NewHandlers(life *lifecycle.Service, authSvc *auth.Service, baseURL string) *Handlers {
	return &Handlers{life: life, auth: authSvc, baseURL: baseURL}
}

// --- публичный трекинг ---

func (h *Handlers) lookupTracking(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "trackingNumber")
	rec, err := h.life.LookupPublic(r.Context(), number)
	if apperrors.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Sorry, parcel not yet collected.")
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// --- админская авторизация ---

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.Signup(r.Context(), req.Username, req.Password); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Admin created"})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- жизненный цикл черновика ---

type shipmentLinkReq struct {
	Sender models.Contact     `json:"sender"`
	Items  []models.DraftItem `json:"items"`
}

func (h *Handlers) createShipmentLink(w http.ResponseWriter, r *http.Request) {
	var req shipmentLinkReq
	if !decodeBody(w, r, &req) {
		return
	}
	tempID, err := h.life.CreateDraft(r.Context(), req.Sender, req.Items)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"tempId": tempID,
		"link":   h.baseURL + "/receiver-form/" + tempID,
	})
}

func (h *Handlers) listPendingShipments(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.life.ListDrafts(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (h *Handlers) submitReceiver(w http.ResponseWriter, r *http.Request) {
	tempID := chi.URLParam(r, "tempId")
	var receiver models.Contact
	if !decodeBody(w, r, &receiver) {
		return
	}
	sh, err := h.life.SubmitReceiver(r.Context(), tempID, receiver)
	if apperrors.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Invalid or expired shipment link")
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (h *Handlers) approveShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.life.Approve(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trackingNumber": rec.TrackingNumber,
		"record":         rec,
	})
}

func (h *Handlers) rejectShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.life.Reject(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Shipment rejected"})
}

// --- трек-записи ---

func (h *Handlers) createRecord(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.RecordInput
	if !decodeBody(w, r, &in) {
		return
	}
	rec, err := h.life.CreateRecord(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.life.ListRecords(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type statusUpdateReq struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

func (h *Handlers) updateRecordStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "trackingNumber")
	var req statusUpdateReq
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.life.RecordStatusUpdate(r.Context(), number, req.Status, req.Location)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type deliveryUpdateReq struct {
	ExpectedDelivery time.Time `json:"expectedDelivery"`
}

func (h *Handlers) updateRecordDelivery(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "trackingNumber")
	var req deliveryUpdateReq
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.life.ChangeExpectedDelivery(r.Context(), number, req.ExpectedDelivery)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.life.DeleteRecord(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record deleted"})
}

// --- очередь уведомлений ---

func (h *Handlers) notifyEmail(w http.ResponseWriter, r *http.Request) {
	var p models.ReceiverDetailsPayload
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.life.NotifyReceiverDetails(r.Context(), p); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *Handlers) notifyTelegram(w http.ResponseWriter, r *http.Request) {
	var p models.AdminSubmissionPayload
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.life.NotifyAdminSubmission(r.Context(), p); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *Handlers) contact(w http.ResponseWriter, r *http.Request) {
	var p models.ContactFormPayload
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.life.SubmitContactForm(r.Context(), p); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
