package testutil

import (
	"encoding/json"
	"testing"

	"flightbook/pkg/client"
	"flightbook/pkg/middleware"
	"flightbook/pkg/model"
)

// Must fails the test on a transport error and returns the response. It
// takes the client call directly: Must(t)(api.GetBooking(ref)).
func Must(t *testing.T) func(*client.Response, error) *client.Response {
	t.Helper()
	return func(resp *client.Response, err error) *client.Response {
		t.Helper()
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}
}

func AssertStatusCode(t *testing.T, resp *client.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %s", expected, resp.ToString())
	}
}

func AssertErrorCode(t *testing.T, resp *client.Response, expected string) {
	t.Helper()
	if code := client.GetErrorCode(resp); code != expected {
		t.Fatalf("expected error code %s, got %s", expected, resp.ToString())
	}
}

// Signature signs an outcome the way the payment provider would.
func (e *TestEnv) Signature(t *testing.T, outcome model.PaymentOutcomeRequest) string {
	t.Helper()
	if e.WebhookSecret == "" {
		return ""
	}
	body, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("failed to marshal outcome: %v", err)
	}
	return middleware.SignPayload(e.WebhookSecret, body)
}
