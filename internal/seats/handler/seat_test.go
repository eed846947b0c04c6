package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flightbook/internal/audit"
	"flightbook/internal/seats/repository"
	"flightbook/internal/seats/service"
	"flightbook/internal/seats/validator"
	"flightbook/pkg/config"
	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func newTestRouter() *httprouter.Router {
	log := logger.Discard()
	svc := service.NewSeatService(
		repository.NewMemorySeatRepository(),
		validator.NewSeatValidator(log),
		audit.Discard{},
		&config.Config{Log: log},
	)
	router := httprouter.New()
	NewSeatHandler(svc, log).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSeatHandler_Lifecycle(t *testing.T) {
	router := newTestRouter()

	rec := do(router, http.MethodPost, "/api/v1/flights/FB7/seats",
		`{"seats":[{"number":"1A","class":"business","price":30000},{"number":"1B","class":"business","price":30000}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add seats: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(router, http.MethodPut, "/api/v1/flights/FB7/seats/1A/block", `{"reason":"cleaning"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("block: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(router, http.MethodGet, "/api/v1/flights/FB7/seats?available=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var listed struct {
		Data []struct {
			Number string `json:"number"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Data) != 1 || listed.Data[0].Number != "1B" {
		t.Errorf("available seats = %+v, want only 1B", listed.Data)
	}

	rec = do(router, http.MethodDelete, "/api/v1/flights/FB7/seats/1A/block", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock: status = %d", rec.Code)
	}
}

func TestSeatHandler_UnknownSeat(t *testing.T) {
	router := newTestRouter()

	rec := do(router, http.MethodPut, "/api/v1/flights/FB7/seats/9Z/block", `{"reason":"damaged"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != apperrors.CodeSeatNotFound {
		t.Errorf("code = %q", body.Code)
	}
}

func TestSeatHandler_RejectsUnknownFields(t *testing.T) {
	router := newTestRouter()

	rec := do(router, http.MethodPost, "/api/v1/flights/FB7/seats", `{"rows":3}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
