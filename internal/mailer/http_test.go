package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/send", r.URL.Path)
		require.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-123", "no-reply@lorehall.example")
	err := client.Send(context.Background(), Message{
		To:      "reader@example.com",
		Subject: "Confirm your subscription",
		Text:    "Click the link.",
	})
	require.NoError(t, err)
	require.Equal(t, "no-reply@lorehall.example", got.From)
	require.Equal(t, "reader@example.com", got.To)
}

func TestClientSendProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid recipient", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-123", "no-reply@lorehall.example")
	err := client.Send(context.Background(), Message{To: "bad"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
}

func TestClientSendUnconfigured(t *testing.T) {
	err := (&Client{}).Send(context.Background(), Message{To: "reader@example.com"})
	require.Error(t, err)
}
