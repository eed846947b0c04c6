package handler

import (
	"net/http"

	"flightbook/internal/seats/service"
	httputil "flightbook/pkg/http"
	"flightbook/pkg/logger"
	"flightbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SeatHandler struct {
	service service.SeatService
	log     *logger.Logger
}

func NewSeatHandler(service service.SeatService, log *logger.Logger) *SeatHandler {
	return &SeatHandler{
		service: service,
		log:     log,
	}
}

type addSeatsRequest struct {
	Seats []*model.Seat `json:"seats"`
}

func (h *SeatHandler) AddSeats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req addSeatsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "AddSeats", err)
		return
	}

	seats, err := h.service.AddSeats(r.Context(), ps.ByName("flight_id"), req.Seats)
	if err != nil {
		h.writeError(w, "AddSeats", err)
		return
	}

	if err := httputil.WriteCreated(w, seats); err != nil {
		h.log.Error("failed to write created response", "handler", "AddSeats", "operation", "WriteCreated", "error", err)
	}
}

func (h *SeatHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	onlyAvailable := r.URL.Query().Get("available") == "true"

	seats, err := h.service.List(r.Context(), ps.ByName("flight_id"), onlyAvailable)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, seats); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SeatHandler) Block(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.SeatBlockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Block", err)
		return
	}

	seat, err := h.service.MarkBlocked(r.Context(), ps.ByName("flight_id"), ps.ByName("number"), req.Reason)
	if err != nil {
		h.writeError(w, "Block", err)
		return
	}

	if err := httputil.WriteSuccess(w, seat); err != nil {
		h.log.Error("failed to write success response", "handler", "Block", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SeatHandler) Unblock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	seat, err := h.service.Unblock(r.Context(), ps.ByName("flight_id"), ps.ByName("number"))
	if err != nil {
		h.writeError(w, "Unblock", err)
		return
	}

	if err := httputil.WriteSuccess(w, seat); err != nil {
		h.log.Error("failed to write success response", "handler", "Unblock", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SeatHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SeatHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/flights/:flight_id/seats", h.AddSeats)
	router.GET("/api/v1/flights/:flight_id/seats", h.List)
	router.PUT("/api/v1/flights/:flight_id/seats/:number/block", h.Block)
	router.DELETE("/api/v1/flights/:flight_id/seats/:number/block", h.Unblock)
}
