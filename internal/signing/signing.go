// Package signing produces expiring, HMAC-signed download URLs for library
// items. The object storage serving the bytes verifies the same signature;
// only the URL contract lives here.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signature verification errors.
var (
	ErrExpired          = errors.New("signed url expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer mints and verifies signed URLs.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// New creates a signer. The secret must be non-empty; config validation
// enforces that before the process accepts traffic.
func New(secret, baseURL string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
	}
}

// SignedURL returns a URL for objectKey that expires after the signer's
// TTL.
func (s *Signer) SignedURL(objectKey string, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	sig := s.sign(objectKey, expires)

	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("sig", sig)

	return fmt.Sprintf("%s/%s?%s", s.baseURL, strings.TrimLeft(objectKey, "/"), query.Encode())
}

// Verify checks a signature produced by SignedURL.
func (s *Signer) Verify(objectKey string, expires int64, sig string, now time.Time) error {
	if now.Unix() > expires {
		return ErrExpired
	}
	expected := s.sign(objectKey, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) sign(objectKey string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", objectKey, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
