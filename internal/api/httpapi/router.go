package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает публичные и админские маршруты. Swagger и прочие
// ops-ручки навешивает cmd поверх этого роутера.
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/tracking/{trackingNumber}", h.lookupTracking)

		r.Post("/admin/signup", h.signup)
		r.Post("/admin/login", h.login)

		r.Post("/receiver/submit/{tempId}", h.submitReceiver)

		r.Post("/notify/email", h.notifyEmail)
		r.Post("/notify/telegram", h.notifyTelegram)
		r.Post("/contact", h.contact)

		// Всё, что меняет данные от имени админа — только с токеном.
		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Post("/admin/shipment-link", h.createShipmentLink)
			r.Get("/admin/pending-shipments", h.listPendingShipments)
			r.Post("/admin/approve-shipment/{id}", h.approveShipment)
			r.Delete("/admin/reject-shipment/{id}", h.rejectShipment)

			r.Post("/admin/tracking", h.createRecord)
			r.Get("/admin/tracking", h.listRecords)
			r.Put("/admin/tracking/number/{trackingNumber}", h.updateRecordStatus)
			r.Put("/admin/tracking/delivery/{trackingNumber}", h.updateRecordDelivery)
			r.Delete("/admin/tracking/{id}", h.deleteRecord)
		})
	})

	return r
}
