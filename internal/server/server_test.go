package server_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/config"
	"github.com/lorehall/lorehall/internal/mailer"
	"github.com/lorehall/lorehall/internal/mailinglist"
	"github.com/lorehall/lorehall/internal/ratelimit"
	"github.com/lorehall/lorehall/internal/server"
	"github.com/lorehall/lorehall/internal/server/handlers"
	"github.com/lorehall/lorehall/internal/store"
)

type countingMailer struct {
	sends atomic.Int64
}

func (m *countingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.sends.Add(1)
	return nil
}

// emptyStore answers every lookup with not-found, which is all the guard
// tests need: denial must happen before persistence is consulted anyway.
type emptyStore struct{}

func (emptyStore) UpsertSubscriber(ctx context.Context, email, token string) error { return nil }
func (emptyStore) SubscriberByToken(ctx context.Context, token string) (*store.Subscriber, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) SubscriberByEmail(ctx context.Context, email string) (*store.Subscriber, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) SetSubscriberStatus(ctx context.Context, token, status string) error { return nil }
func (emptyStore) LibraryItemByID(ctx context.Context, id string) (*store.LibraryItem, error) {
	return nil, store.ErrNotFound
}

func newTestServer(t *testing.T) (*server.Server, *ratelimit.Table, *countingMailer) {
	t.Helper()

	table := ratelimit.DefaultTable()
	sent := &countingMailer{}

	api := &handlers.API{
		Guardian: ratelimit.NewGuardian(ratelimit.NewMemoryStore(), table, zap.NewNop()),
		Store:    emptyStore{},
		Mailer:   sent,
		List:     &mailinglist.Noop{},
		Logger:   zap.NewNop(),
		BaseURL:  "http://localhost:8080",
	}

	health := handlers.NewHealthManager("test")
	version := handlers.VersionInfo{Version: "test", Commit: "none", BuildDate: "unknown"}

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, AllowedOrigins: []string{"*"}}
	return server.New(cfg, api, health, version, zap.NewNop()), table, sent
}

func doJSON(handler http.Handler, method, path, body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestOperationalRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/version"} {
		rec := doJSON(srv.Handler(), http.MethodGet, path, "", "")
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestContactFloodGetsJSONRejection(t *testing.T) {
	srv, table, sent := newTestServer(t)
	policy, ok := table.Lookup(ratelimit.EndpointContact, ratelimit.DimensionIP)
	require.True(t, ok)

	// Distinct senders per request: only the IP dimension accumulates.
	for i := 0; i < policy.Capacity; i++ {
		body := fmt.Sprintf(`{"email":"gm%d@example.com","message":"scheduling question"}`, i)
		rec := doJSON(srv.Handler(), http.MethodPost, "/api/contact", body, "198.51.100.7")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doJSON(srv.Handler(), http.MethodPost, "/api/contact", `{"email":"late@example.com","message":"one more"}`, "198.51.100.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	// The denied request never reached the mail collaborator.
	require.Equal(t, int64(policy.Capacity), sent.sends.Load())
}

func TestContactOtherClientUnaffected(t *testing.T) {
	srv, table, _ := newTestServer(t)
	policy, ok := table.Lookup(ratelimit.EndpointContact, ratelimit.DimensionIP)
	require.True(t, ok)

	for i := 0; i <= policy.Capacity; i++ {
		body := fmt.Sprintf(`{"email":"gm%d@example.com","message":"hello"}`, i)
		doJSON(srv.Handler(), http.MethodPost, "/api/contact", body, "198.51.100.7")
	}

	rec := doJSON(srv.Handler(), http.MethodPost, "/api/contact", `{"email":"other@example.com","message":"hello"}`, "203.0.113.9")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedContactIsBadRequestNotBudget(t *testing.T) {
	srv, table, sent := newTestServer(t)
	policy, ok := table.Lookup(ratelimit.EndpointContact, ratelimit.DimensionIP)
	require.True(t, ok)

	// Invalid email bodies spend the IP budget (the flood shield runs
	// pre-parse) but never the identity budget or the mailer.
	for i := 0; i < policy.Capacity; i++ {
		rec := doJSON(srv.Handler(), http.MethodPost, "/api/contact", `{"email":"not-an-email","message":"x"}`, "198.51.100.7")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	require.Equal(t, int64(0), sent.sends.Load())
}

func TestPreflightBypassesGuards(t *testing.T) {
	srv, table, _ := newTestServer(t)
	policy, ok := table.Lookup(ratelimit.EndpointContact, ratelimit.DimensionIP)
	require.True(t, ok)

	for i := 0; i < policy.Capacity*2; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
		req.Header.Set("Origin", "https://lorehall.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	// The preflights above consumed nothing.
	body := `{"email":"gm@example.com","message":"still here"}`
	rec := doJSON(srv.Handler(), http.MethodPost, "/api/contact", body, "198.51.100.7")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConfirmLinkFloodGetsHTMLRejection(t *testing.T) {
	srv, table, _ := newTestServer(t)
	policy, ok := table.Lookup(ratelimit.EndpointNewsletterConfirm, ratelimit.DimensionIP)
	require.True(t, ok)

	token := uuid.NewString()
	path := fmt.Sprintf("/api/newsletter/confirm?token=%s", token)

	var last *httptest.ResponseRecorder
	for i := 0; i <= policy.Capacity; i++ {
		last = doJSON(srv.Handler(), http.MethodGet, path, "", "198.51.100.7")
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	require.Contains(t, last.Header().Get("Content-Type"), "text/html")
	require.True(t, strings.Contains(last.Body.String(), "<html"))
}

func TestMalformedTokenIsBadRequestNotBudget(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(srv.Handler(), http.MethodGet, "/api/newsletter/confirm?token=../../etc", "", "198.51.100.7")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(srv.Handler(), http.MethodGet, "/api/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
