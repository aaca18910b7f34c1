package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// UnknownIP is returned when no proxy header identifies the caller.
const UnknownIP = "unknown"

// ClientIP extracts the caller's network identity from proxy headers.
//
// Behind a reverse proxy the socket address is meaningless, so this trusts
// X-Forwarded-For (first entry) and falls back to X-Real-Ip. A cooperating
// misconfigured proxy can spoof these; that is a known limitation of the
// deployment model, not something this function can fix. It never fails and
// always returns a usable string.
func ClientIP(r *http.Request) string {
	if r == nil {
		return UnknownIP
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}

	return UnknownIP
}

// HashIdentifier returns the SHA-256 hex digest of a secondary identifier
// (email, token, content id). Hashing keeps raw PII out of the counting
// store's keyspace. The digest is deliberately unsalted so the same
// identifier maps to the same bucket across process restarts and instances.
func HashIdentifier(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
