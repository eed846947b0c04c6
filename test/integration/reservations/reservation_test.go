package reservations

import (
	"net/http"
	"sync"
	"testing"

	"flightbook/pkg/client"
	"flightbook/pkg/model"
	"flightbook/test/integration/testutil"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

var env = testutil.NewTestEnv()

func seedFlight(t *testing.T, api *client.FlightbookClient) string {
	t.Helper()
	flightID := "IT" + uuid.NewString()[:6]
	resp := testutil.Must(t)(api.AddSeats(flightID, map[string]any{
		"seats": []map[string]any{
			{"number": "1A", "class": "business", "price": 45000},
			{"number": "1B", "class": "business", "price": 45000},
			{"number": "14C", "class": "economy", "price": 12000},
		},
	}))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	return flightID
}

func bookingRequest(flightID string, seats ...string) map[string]any {
	passengers := make([]map[string]any, 0, len(seats))
	for range seats {
		passengers = append(passengers, map[string]any{
			"first_name":    "Dana",
			"last_name":     "Levi",
			"date_of_birth": "1990-04-12",
			"gender":        "female",
		})
	}
	return map[string]any{
		"flight_id":      flightID,
		"passengers":     passengers,
		"seat_numbers":   seats,
		"contact_email":  "dana@example.com",
		"payment_method": "card",
	}
}

func reserve(t *testing.T, api *client.FlightbookClient, flightID string, seats ...string) *model.Reservation {
	t.Helper()
	resp := testutil.Must(t)(api.CreateBooking(bookingRequest(flightID, seats...), ""))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	reservation, err := api.DecodeReservation(resp)
	if err != nil {
		t.Fatal(err)
	}
	return reservation
}

func settle(t *testing.T, api *client.FlightbookClient, paymentID, outcome string) {
	t.Helper()
	req := model.PaymentOutcomeRequest{Outcome: outcome, TransactionID: "txn-" + uuid.NewString()}
	resp := testutil.Must(t)(api.RecordOutcome(paymentID, req, env.Signature(t, req)))
	testutil.AssertStatusCode(t, resp, http.StatusOK)
}

func bookingStatus(t *testing.T, api *client.FlightbookClient, reference string) string {
	t.Helper()
	resp := testutil.Must(t)(api.GetBooking(reference))
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	booking, err := api.DecodeBooking(resp)
	if err != nil {
		t.Fatal(err)
	}
	return booking.Status
}

func TestBookAndPay(t *testing.T) {
	mongo, api := env.Setup(t)
	flightID := seedFlight(t, api)

	reservation := reserve(t, api, flightID, "1A", "14C")
	if reservation.Payment.Amount != 57000 {
		t.Fatalf("amount = %d, want 57000", reservation.Payment.Amount)
	}

	settle(t, api, reservation.Payment.PaymentID, model.OutcomeSuccess)

	if got := bookingStatus(t, api, reservation.Booking.Reference); got != model.BookingConfirmed {
		t.Fatalf("status = %s, want confirmed", got)
	}
	sold := mongo.CountDocuments(t, testutil.SeatsCollection, bson.M{"flight_id": flightID, "available": false})
	if sold != 2 {
		t.Errorf("sold seats = %d, want 2", sold)
	}
	paid := mongo.CountDocuments(t, testutil.PaymentsCollection, bson.M{"status": model.PaymentPaid})
	if paid != 1 {
		t.Errorf("paid payments = %d, want 1", paid)
	}

	resp := testutil.Must(t)(api.Ticket(reservation.Booking.Reference))
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("ticket content type = %q", ct)
	}
}

func TestFailedPaymentReleasesSeats(t *testing.T) {
	mongo, api := env.Setup(t)
	flightID := seedFlight(t, api)

	reservation := reserve(t, api, flightID, "1B")
	settle(t, api, reservation.Payment.PaymentID, model.OutcomeFailure)

	if got := bookingStatus(t, api, reservation.Booking.Reference); got != model.BookingCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
	held := mongo.CountDocuments(t, testutil.SeatsCollection, bson.M{"flight_id": flightID, "available": false})
	if held != 0 {
		t.Errorf("unavailable seats = %d, want 0", held)
	}

	// The seat can be booked again.
	reserve(t, api, flightID, "1B")
}

func TestConcurrentReservationsDoNotDoubleBook(t *testing.T) {
	_, api := env.Setup(t)
	flightID := seedFlight(t, api)

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := api.CreateBooking(bookingRequest(flightID, "14C"), "")
			if err != nil {
				t.Errorf("request failed: %v", err)
				return
			}
			codes[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	var created int
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict, http.StatusTooManyRequests, 0:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
}

func TestCancelConfirmedBooking(t *testing.T) {
	mongo, api := env.Setup(t)
	flightID := seedFlight(t, api)

	reservation := reserve(t, api, flightID, "1A")
	settle(t, api, reservation.Payment.PaymentID, model.OutcomeSuccess)

	reference := reservation.Booking.Reference
	resp := testutil.Must(t)(api.CancelBooking(reference, "change of plans"))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	refunded := mongo.CountDocuments(t, testutil.PaymentsCollection, bson.M{"status": model.PaymentRefunded})
	if refunded != 1 {
		t.Errorf("refunded payments = %d, want 1", refunded)
	}

	resp = testutil.Must(t)(api.CancelBooking(reference, ""))
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	testutil.AssertErrorCode(t, resp, "INVALID_TRANSITION")
}
