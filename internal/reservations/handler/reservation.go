package handler

import (
	"net/http"

	"flightbook/internal/reservations/service"
	apperrors "flightbook/pkg/errors"
	httputil "flightbook/pkg/http"
	"flightbook/pkg/logger"
	"flightbook/pkg/middleware"
	"flightbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	coordinator   service.Coordinator
	webhookSecret string
	log           *logger.Logger
}

// NewReservationHandler serves the booking lifecycle. Payment callbacks are
// checked against webhookSecret when it is set.
func NewReservationHandler(coordinator service.Coordinator, webhookSecret string, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		coordinator:   coordinator,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}
	req.UserID = middleware.UserID(r)
	if req.UserID == "" {
		h.writeError(w, "Create", apperrors.InvalidInput("X-User-ID header is required"))
		return
	}

	reservation, err := h.coordinator.CreateBooking(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	status, err := h.coordinator.GetStatus(r.Context(), ps.ByName("reference"))
	if err != nil {
		h.writeError(w, "Status", err)
		return
	}

	if err := httputil.WriteSuccess(w, status); err != nil {
		h.log.Error("failed to write success response", "handler", "Status", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelBookingRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "Cancel", err)
			return
		}
	}

	booking, err := h.coordinator.Cancel(r.Context(), ps.ByName("reference"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.coordinator.Complete(r.Context(), ps.ByName("reference"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Ticket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ticket, err := h.coordinator.RenderTicket(r.Context(), ps.ByName("reference"))
	if err != nil {
		h.writeError(w, "Ticket", err)
		return
	}

	if err := httputil.WriteDocument(w, "image/png", ticket); err != nil {
		h.log.Error("failed to write document", "handler", "Ticket", "operation", "WriteDocument", "error", err)
	}
}

func (h *ReservationHandler) Invoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	invoice, err := h.coordinator.RenderInvoice(r.Context(), ps.ByName("reference"))
	if err != nil {
		h.writeError(w, "Invoice", err)
		return
	}

	if err := httputil.WriteDocument(w, "text/plain; charset=utf-8", invoice); err != nil {
		h.log.Error("failed to write document", "handler", "Invoice", "operation", "WriteDocument", "error", err)
	}
}

// RecordOutcome is the payment provider callback.
func (h *ReservationHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	ps := httprouter.ParamsFromContext(r.Context())

	var req model.PaymentOutcomeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "RecordOutcome", err)
		return
	}

	result, err := h.coordinator.RecordPaymentOutcome(r.Context(), ps.ByName("payment_id"), &req)
	if err != nil {
		h.writeError(w, "RecordOutcome", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "RecordOutcome", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/ref/:reference/status", h.Status)
	router.POST("/api/v1/bookings/ref/:reference/cancel", h.Cancel)
	router.POST("/api/v1/bookings/ref/:reference/complete", h.Complete)
	router.GET("/api/v1/bookings/ref/:reference/ticket", h.Ticket)
	router.GET("/api/v1/bookings/ref/:reference/invoice", h.Invoice)

	outcome := middleware.PaymentSignatureVerification(h.webhookSecret, h.log)(http.HandlerFunc(h.RecordOutcome))
	router.Handler(http.MethodPost, "/api/v1/payments/:payment_id/outcome", outcome)
}
