package signing

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := New("secret", "https://files.lorehall.example", 15*time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	signed := signer.SignedURL("pdfs/starter-dungeon.pdf", now)
	require.True(t, strings.HasPrefix(signed, "https://files.lorehall.example/pdfs/starter-dungeon.pdf?"))

	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	sig := parsed.Query().Get("sig")

	require.NoError(t, signer.Verify("pdfs/starter-dungeon.pdf", expires, sig, now))
	require.ErrorIs(t, signer.Verify("pdfs/starter-dungeon.pdf", expires, sig, now.Add(16*time.Minute)), ErrExpired)
	require.ErrorIs(t, signer.Verify("pdfs/other.pdf", expires, sig, now), ErrInvalidSignature)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	signer := New("secret", "https://files.lorehall.example", time.Minute)
	now := time.Now().UTC()

	require.ErrorIs(t, signer.Verify("pdfs/x.pdf", now.Add(time.Minute).Unix(), "deadbeef", now), ErrInvalidSignature)
}

func TestDifferentSecretsDisagree(t *testing.T) {
	now := time.Now().UTC()
	a := New("secret-a", "https://files.example", time.Minute)
	b := New("secret-b", "https://files.example", time.Minute)

	expires := now.Add(time.Minute).Unix()
	sig := a.sign("pdfs/x.pdf", expires)
	require.ErrorIs(t, b.Verify("pdfs/x.pdf", expires, sig, now), ErrInvalidSignature)
}
