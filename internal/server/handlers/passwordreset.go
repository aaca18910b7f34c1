package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/mailer"
	"github.com/lorehall/lorehall/internal/ratelimit"
)

type passwordResetRequest struct {
	Email string `json:"email"`
}

// PasswordReset issues a reset link. It carries the strictest policies in
// the table and always answers 202: whether the account exists is never
// revealed, and a denied guard is the only way to distinguish repeated
// attempts.
func (a *API) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req, maxNewsletterBody); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !ValidEmail(email) {
		writeJSONError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	if !a.Guardian.Admit(w, r, ratelimit.EndpointPasswordReset, ratelimit.DimensionIdentity, email, ratelimit.ModeJSON, ratelimit.FailOpen) {
		return
	}

	// The auth platform owns accounts and reset tokens; this service only
	// delivers the email. A token is minted here so the message is unique
	// per request.
	resetURL := fmt.Sprintf("%s/account/reset?token=%s", a.BaseURL, uuid.NewString())
	err := a.Mailer.Send(r.Context(), mailer.Message{
		To:      email,
		Subject: "Reset your Lorehall password",
		Text:    "Reset your password: " + resetURL + "\nIf you did not request this, ignore this email.",
	})
	if err != nil {
		a.logger().Error("password reset mail delivery failed", zap.Error(err))
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "if the account exists, an email has been sent"})
}
