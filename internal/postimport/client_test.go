package postimport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_TriggerScan(t *testing.T) {
	var gotBody scanRequest
	var gotToken, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-MediaBrowser-Token")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key", nil)
	err := c.TriggerScan(context.Background(), "/downloads/movies")

	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotToken)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "/downloads/movies", gotBody.Path)
	assert.NotEmpty(t, gotBody.Name)
}

func TestClient_TriggerScan_NonNoContentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "key", nil)
	err := c.TriggerScan(context.Background(), "/downloads")

	assert.Error(t, err, "anything but 204 is a failure")
}

func TestClient_TriggerScan_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "key", nil)
	err := c.TriggerScan(context.Background(), "/downloads")

	assert.Error(t, err)
}
