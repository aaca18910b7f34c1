package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Mode selects the shape of a rejection body. It is fixed per endpoint by
// how that endpoint's callers consume responses (API clients vs. a browser
// following an emailed link), not negotiated per request.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
	ModeHTML Mode = "html"
)

const rejectionMessage = "Too many requests. Please try again later."

const rejectionPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Too Many Requests</title>
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
<h1>Too many requests</h1>
<p>You have made too many requests in a short time. Please wait about %s and try again.</p>
</main>
</body>
</html>
`

// WriteRejection converts a deny decision into an HTTP 429. It sets
// Retry-After (whole seconds, never negative) and X-RateLimit-Reset
// (RFC 3339), then writes a body per mode. Allowed decisions are the
// endpoint's own business; calling this with one is a programming error and
// writes nothing.
func WriteRejection(w http.ResponseWriter, decision Decision, mode Mode) {
	if decision.Allowed {
		return
	}

	now := time.Now().UTC()
	retryAfter := decision.RetryAfter(now)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))

	switch mode {
	case ModeHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintf(w, rejectionPage, humanDuration(time.Duration(retryAfter)*time.Second))
	case ModeText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintf(w, "%s Retry in %d seconds.\n", rejectionMessage, retryAfter)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":      rejectionMessage,
			"retryAfter": retryAfter,
		})
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%d hour(s)", int(d.Hours()+0.5))
	case d >= time.Minute:
		return fmt.Sprintf("%d minute(s)", int(d.Minutes()+0.5))
	default:
		seconds := int(d.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return fmt.Sprintf("%d second(s)", seconds)
	}
}
