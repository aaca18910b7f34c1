package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/mailer"
	"github.com/lorehall/lorehall/internal/ratelimit"
)

const maxContactBody = 64 << 10

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Contact handles the contact form. The IP guard already ran as router
// middleware; the email guard runs here, after validation, so a malformed
// address costs no budget.
func (a *API) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req, maxContactBody); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Message = strings.TrimSpace(req.Message)
	if !ValidEmail(req.Email) {
		writeJSONError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	if !a.Guardian.Admit(w, r, ratelimit.EndpointContact, ratelimit.DimensionIdentity, req.Email, ratelimit.ModeJSON, ratelimit.FailOpen) {
		return
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Contact form message"
	}

	err := a.Mailer.Send(r.Context(), mailer.Message{
		To:      "contact@lorehall.example",
		Subject: subject,
		Text:    fmt.Sprintf("From: %s <%s>\n\n%s", strings.TrimSpace(req.Name), req.Email, req.Message),
	})
	if err != nil {
		a.logger().Error("contact mail delivery failed", zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, "message could not be delivered")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
