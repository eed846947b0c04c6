package handler

import (
	"net/http"

	"flightbook/internal/bookings/service"
	apperrors "flightbook/pkg/errors"
	httputil "flightbook/pkg/http"
	"flightbook/pkg/logger"
	"flightbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// BookingHandler serves booking lookups. State-changing booking endpoints
// belong to the reservation coordinator.
type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.UserID(r)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		h.writeError(w, "List", apperrors.InvalidInput("X-User-ID header or user_id query parameter is required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	bookings, total, err := h.service.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, httputil.PaginatedResponse{
		Data:       bookings,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) GetByReference(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByReference(r.Context(), ps.ByName("reference"))
	if err != nil {
		h.writeError(w, "GetByReference", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByReference", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/ref/:reference", h.GetByReference)
}
