package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"flightbook/pkg/model"
)

// FlightbookClient drives the bookings API on behalf of a single user.
type FlightbookClient struct {
	httpClient *HttpClient
}

func NewFlightbookClient(baseURL, userID string) *FlightbookClient {
	return &FlightbookClient{
		httpClient: NewHttpClient(baseURL).WithHeader(HeaderUserID, userID),
	}
}

func (c *FlightbookClient) AddSeats(flightID string, seats any) (*Response, error) {
	return c.httpClient.POST(seatsPath(flightID), seats)
}

func (c *FlightbookClient) ListSeats(flightID string, onlyAvailable bool) (*Response, error) {
	path := seatsPath(flightID)
	if onlyAvailable {
		path += "?available=true"
	}
	return c.httpClient.GET(path)
}

func (c *FlightbookClient) BlockSeat(flightID, number, reason string) (*Response, error) {
	return c.httpClient.PUT(blockPath(flightID, number), model.SeatBlockRequest{Reason: reason})
}

func (c *FlightbookClient) UnblockSeat(flightID, number string) (*Response, error) {
	return c.httpClient.DELETE(blockPath(flightID, number))
}

func (c *FlightbookClient) CreateBooking(body any, idempotencyKey string) (*Response, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[HeaderIdempotencyKey] = idempotencyKey
	}
	return c.httpClient.POSTWithHeaders("/api/v1/bookings", body, headers)
}

func (c *FlightbookClient) ListBookings(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/bookings?limit=%d&offset=%d", limit, offset))
}

func (c *FlightbookClient) GetBooking(reference string) (*Response, error) {
	return c.httpClient.GET(bookingPath(reference))
}

func (c *FlightbookClient) CancelBooking(reference, reason string) (*Response, error) {
	return c.httpClient.POST(bookingPath(reference)+"/cancel", model.CancelBookingRequest{Reason: reason})
}

func (c *FlightbookClient) CompleteBooking(reference string) (*Response, error) {
	return c.httpClient.POST(bookingPath(reference)+"/complete", struct{}{})
}

func (c *FlightbookClient) Ticket(reference string) (*Response, error) {
	return c.httpClient.GET(bookingPath(reference) + "/ticket")
}

func (c *FlightbookClient) Invoice(reference string) (*Response, error) {
	return c.httpClient.GET(bookingPath(reference) + "/invoice")
}

// RecordOutcome posts a payment provider callback. signature may be empty
// when the server runs without a webhook secret.
func (c *FlightbookClient) RecordOutcome(paymentID string, outcome model.PaymentOutcomeRequest, signature string) (*Response, error) {
	body, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if signature != "" {
		headers["X-Payment-Signature"] = signature
	}
	return c.httpClient.POSTRaw("/api/v1/payments/"+url.PathEscape(paymentID)+"/outcome", body, headers)
}

func (c *FlightbookClient) DecodeReservation(resp *Response) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := decodeData(resp, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *FlightbookClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := decodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *FlightbookClient) DecodeSeats(resp *Response) ([]model.Seat, error) {
	var seats []model.Seat
	if err := decodeData(resp, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

func (c *FlightbookClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%s\n%w", resp.ToString(), err)
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list:\n%s\n%w", resp.ToString(), err)
	}

	return bookings, &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}, nil
}

type Metadata struct {
	TotalCount int64
	Limit      int
	Offset     int64
}

func decodeData(resp *Response, target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper:\n%s\n%w", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data:\n%s\n%w", resp.ToString(), err)
	}
	return nil
}

func seatsPath(flightID string) string {
	return "/api/v1/flights/" + url.PathEscape(flightID) + "/seats"
}

func blockPath(flightID, number string) string {
	return seatsPath(flightID) + "/" + url.PathEscape(number) + "/block"
}

func bookingPath(reference string) string {
	return "/api/v1/bookings/ref/" + url.PathEscape(reference)
}
