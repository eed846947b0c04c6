package testutil

import (
	"net/http"
	"testing"

	"flightbook/pkg/client"
)

func TestMust_AcceptsClientCall(t *testing.T) {
	call := func() (*client.Response, error) {
		return &client.Response{Response: &http.Response{StatusCode: http.StatusCreated}}, nil
	}

	resp := Must(t)(call())
	AssertStatusCode(t, resp, http.StatusCreated)
}
