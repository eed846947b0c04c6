package testutil

import (
	"os"
	"testing"

	"flightbook/pkg/client"

	"github.com/google/uuid"
)

const DefaultReadyTimeout = 3 * ConnectionTimeout

type TestEnv struct {
	MongoURI      string
	DatabaseName  string
	ServerURL     string
	WebhookSecret string
}

func NewTestEnv() *TestEnv {
	return &TestEnv{
		MongoURI:      getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName:  getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:     os.Getenv("TEST_SERVER_URL"),
		WebhookSecret: os.Getenv("TEST_PAYMENT_WEBHOOK_SECRET"),
	}
}

// Setup skips the test unless TEST_SERVER_URL points at a running service.
// Each call acts as a fresh user so tests do not share rate limits or
// idempotency keys.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.FlightbookClient) {
	t.Helper()

	if e.ServerURL == "" {
		t.Skip("TEST_SERVER_URL not set")
	}

	if err := client.NewHttpClient(e.ServerURL).WaitForReady(DefaultReadyTimeout); err != nil {
		t.Fatal(err)
	}

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)
	t.Cleanup(func() { mongo.Close(t) })

	return mongo, client.NewFlightbookClient(e.ServerURL, "it-"+uuid.NewString()[:8])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
