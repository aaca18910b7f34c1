package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/mailer"
	"github.com/lorehall/lorehall/internal/ratelimit"
	"github.com/lorehall/lorehall/internal/store"
)

const maxNewsletterBody = 4 << 10

type newsletterRequest struct {
	Email string `json:"email"`
}

// NewsletterSubscribe registers a pending subscriber and emails a
// confirmation link.
func (a *API) NewsletterSubscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := a.newsletterEmail(w, r, ratelimit.EndpointNewsletterSubscribe)
	if !ok {
		return
	}

	token := uuid.NewString()
	if err := a.Store.UpsertSubscriber(r.Context(), email, token); err != nil {
		a.logger().Error("subscriber upsert failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "subscription failed")
		return
	}

	confirmURL := fmt.Sprintf("%s/api/newsletter/confirm?token=%s", a.BaseURL, token)
	err := a.Mailer.Send(r.Context(), mailer.Message{
		To:      email,
		Subject: "Confirm your Lorehall newsletter subscription",
		Text:    "Confirm your subscription: " + confirmURL,
		HTML:    fmt.Sprintf(`<p>Confirm your subscription: <a href="%s">%s</a></p>`, confirmURL, confirmURL),
	})
	if err != nil {
		a.logger().Error("confirmation mail delivery failed", zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, "confirmation email could not be sent")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending confirmation"})
}

// NewsletterResubscribe rotates the token of a known address and re-sends
// the confirmation email. The response does not reveal whether the address
// was known.
func (a *API) NewsletterResubscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := a.newsletterEmail(w, r, ratelimit.EndpointNewsletterResubscribe)
	if !ok {
		return
	}

	if _, err := a.Store.SubscriberByEmail(r.Context(), email); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger().Error("subscriber lookup failed", zap.Error(err))
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending confirmation"})
		return
	}

	token := uuid.NewString()
	if err := a.Store.UpsertSubscriber(r.Context(), email, token); err != nil {
		a.logger().Error("subscriber upsert failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "resubscription failed")
		return
	}

	confirmURL := fmt.Sprintf("%s/api/newsletter/confirm?token=%s", a.BaseURL, token)
	err := a.Mailer.Send(r.Context(), mailer.Message{
		To:      email,
		Subject: "Confirm your Lorehall newsletter subscription",
		Text:    "Confirm your subscription: " + confirmURL,
	})
	if err != nil {
		a.logger().Error("confirmation mail delivery failed", zap.Error(err))
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending confirmation"})
}

// newsletterEmail parses, validates, and guards the email of a subscribe
// class request. Returns ok=false when a response was already written.
func (a *API) newsletterEmail(w http.ResponseWriter, r *http.Request, endpoint ratelimit.Endpoint) (string, bool) {
	var req newsletterRequest
	if err := decodeJSON(w, r, &req, maxNewsletterBody); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !ValidEmail(email) {
		writeJSONError(w, http.StatusBadRequest, "invalid email address")
		return "", false
	}

	if !a.Guardian.Admit(w, r, endpoint, ratelimit.DimensionIdentity, email, ratelimit.ModeJSON, ratelimit.FailOpen) {
		return "", false
	}

	return email, true
}

// NewsletterConfirm completes a subscription. The link is opened in a
// browser, so both guards run as a declarative sequence configured on the
// route and the response is HTML.
func (a *API) NewsletterConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !ValidToken(token) {
		a.writeHTMLStatus(w, http.StatusBadRequest, "Invalid link", "This confirmation link is not valid. Please use the link from your email.")
		return
	}

	sub, err := a.Store.SubscriberByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeHTMLStatus(w, http.StatusNotFound, "Link not found", "This confirmation link is unknown or has been replaced by a newer one.")
			return
		}
		a.logger().Error("subscriber lookup failed", zap.Error(err))
		a.writeHTMLStatus(w, http.StatusInternalServerError, "Something went wrong", "Please try again later.")
		return
	}

	if err := a.Store.SetSubscriberStatus(r.Context(), token, store.StatusConfirmed); err != nil {
		a.logger().Error("subscriber confirm failed", zap.Error(err))
		a.writeHTMLStatus(w, http.StatusInternalServerError, "Something went wrong", "Please try again later.")
		return
	}

	if err := a.List.Subscribe(r.Context(), sub.Email); err != nil {
		// The local record is authoritative; sync failures are retried by
		// the next transition.
		a.logger().Error("mailing list sync failed", zap.Error(err))
	}

	a.writeHTMLStatus(w, http.StatusOK, "Subscription confirmed", "You are on the list. Welcome to Lorehall.")
}

// NewsletterUnsubscribe removes a subscriber via an emailed link.
func (a *API) NewsletterUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !ValidToken(token) {
		a.writeHTMLStatus(w, http.StatusBadRequest, "Invalid link", "This unsubscribe link is not valid. Please use the link from your email.")
		return
	}

	sub, err := a.Store.SubscriberByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeHTMLStatus(w, http.StatusNotFound, "Link not found", "This unsubscribe link is unknown.")
			return
		}
		a.logger().Error("subscriber lookup failed", zap.Error(err))
		a.writeHTMLStatus(w, http.StatusInternalServerError, "Something went wrong", "Please try again later.")
		return
	}

	if err := a.Store.SetSubscriberStatus(r.Context(), token, store.StatusUnsubscribed); err != nil {
		a.logger().Error("subscriber unsubscribe failed", zap.Error(err))
		a.writeHTMLStatus(w, http.StatusInternalServerError, "Something went wrong", "Please try again later.")
		return
	}

	if err := a.List.Unsubscribe(r.Context(), sub.Email); err != nil {
		a.logger().Error("mailing list sync failed", zap.Error(err))
	}

	a.writeHTMLStatus(w, http.StatusOK, "Unsubscribed", "You will not receive further newsletters.")
}

func (a *API) writeHTMLStatus(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, confirmPage, title, title, body)
}
