package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "lsli_skid Update Summary", req["subject"])

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient("sg-key", WithBaseURL(srv.URL))
	err := client.Send(context.Background(), Message{
		From:    "noreply@utah.gov",
		To:      []string{"gis@utah.gov"},
		Subject: "lsli_skid Update Summary",
		Body:    "Points loaded: 42",
	})
	require.NoError(t, err)
}

func TestSend_NoRecipients(t *testing.T) {
	client := NewClient("sg-key")
	err := client.Send(context.Background(), Message{From: "noreply@utah.gov"})
	assert.Error(t, err)
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad key"}]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("sg-key", WithBaseURL(srv.URL))
	err := client.Send(context.Background(), Message{
		From: "noreply@utah.gov",
		To:   []string{"gis@utah.gov"},
		Body: "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
