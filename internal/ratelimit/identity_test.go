package ratelimit

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIPForwardedFor(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/contact", nil)
	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	r.Header.Set("X-Real-Ip", "198.51.100.2")

	require.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestClientIPRealIPFallback(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/contact", nil)
	r.Header.Set("X-Real-Ip", "198.51.100.2")

	require.Equal(t, "198.51.100.2", ClientIP(r))
}

func TestClientIPUnknown(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/contact", nil)
	require.Equal(t, UnknownIP, ClientIP(r))

	r.Header.Set("X-Forwarded-For", " , ")
	require.Equal(t, UnknownIP, ClientIP(r))
}

func TestHashIdentifierDeterministic(t *testing.T) {
	first := HashIdentifier("reader@example.com")
	second := HashIdentifier("reader@example.com")

	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.NotContains(t, first, "@")
}

func TestHashIdentifierDistinctInputs(t *testing.T) {
	require.NotEqual(t, HashIdentifier("a@example.com"), HashIdentifier("b@example.com"))
}

func TestKeyNeverContainsRawIdentity(t *testing.T) {
	policy, ok := DefaultTable().Lookup(EndpointNewsletterSubscribe, DimensionIdentity)
	require.True(t, ok)

	email := "reader@example.com"
	key := Key(policy, DimensionIdentity, HashIdentifier(email))
	require.False(t, strings.Contains(key, email))
	require.True(t, strings.HasPrefix(key, "newsletter-subscribe:id:"))
}
