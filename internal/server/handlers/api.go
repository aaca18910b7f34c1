// Package handlers implements the protected endpoints of the content hub.
// Every handler follows the same admission sequence: the router applies the
// endpoint's IP guard before the handler runs, the handler validates its
// payload, then evaluates its identity guard, and only then touches a
// downstream collaborator.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/mailer"
	"github.com/lorehall/lorehall/internal/mailinglist"
	"github.com/lorehall/lorehall/internal/ratelimit"
	"github.com/lorehall/lorehall/internal/signing"
	"github.com/lorehall/lorehall/internal/store"
)

// ContentStore is the slice of the persistence layer the handlers touch.
// *store.Store satisfies it; tests substitute fakes.
type ContentStore interface {
	UpsertSubscriber(ctx context.Context, email, token string) error
	SubscriberByToken(ctx context.Context, token string) (*store.Subscriber, error)
	SubscriberByEmail(ctx context.Context, email string) (*store.Subscriber, error)
	SetSubscriberStatus(ctx context.Context, token, status string) error
	LibraryItemByID(ctx context.Context, id string) (*store.LibraryItem, error)
}

// API bundles the dependencies the endpoint handlers share.
type API struct {
	Guardian *ratelimit.Guardian
	Store    ContentStore
	Mailer   mailer.Mailer
	List     mailinglist.Syncer
	Signer   *signing.Signer
	Logger   *zap.Logger
	BaseURL  string
}

// Syntactically plausible, not exhaustively RFC-compliant: enough to reject
// garbage before it spends a rate-limit budget or reaches the mail provider.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// ValidEmail reports whether the address is plausible.
func ValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// ValidToken reports whether a link token is a well-formed UUID.
func ValidToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}

func (a *API) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

const confirmPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
  body { font-family: system-ui, sans-serif; background: #1a1625; color: #e8e3f0;
         display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
  main { max-width: 28rem; padding: 2rem; text-align: center; }
  h1 { font-size: 1.4rem; }
  p { color: #b5aec7; }
</style>
</head>
<body>
<main>
<h1>%s</h1>
<p>%s</p>
</main>
</body>
</html>
`
