package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorehall/lorehall/internal/ratelimit"
	"github.com/lorehall/lorehall/internal/server/handlers"
)

// tokenSpec extracts the confirmation or unsubscribe token from the query
// string. Malformed tokens are not admitted to the limiter; the handler
// answers 400 without spending budget.
func tokenSpec() ratelimit.GuardSpec {
	return ratelimit.GuardSpec{
		Dimension: ratelimit.DimensionIdentity,
		Extract: func(r *http.Request) (string, bool) {
			token := r.URL.Query().Get("token")
			if !handlers.ValidToken(token) {
				return "", false
			}
			return token, true
		},
	}
}

// registerRoutes binds endpoints to handlers and their admission guards.
// POST endpoints carry only the IP guard as middleware because their
// secondary identifier lives in the request body; the handler runs the
// identity guard itself after validation. The GET link endpoints carry the
// full sequence here since their identifier is in the query string.
func (s *Server) registerRoutes(api *handlers.API, health *handlers.HealthManager, version handlers.VersionInfo) {
	guard := api.Guardian

	s.router.Route("/api", func(r chi.Router) {
		r.With(guard.IPGuard(ratelimit.EndpointContact, ratelimit.ModeJSON)).
			Post("/contact", api.Contact)

		r.Route("/newsletter", func(r chi.Router) {
			r.With(guard.IPGuard(ratelimit.EndpointNewsletterSubscribe, ratelimit.ModeJSON)).
				Post("/subscribe", api.NewsletterSubscribe)
			r.With(guard.IPGuard(ratelimit.EndpointNewsletterResubscribe, ratelimit.ModeJSON)).
				Post("/resubscribe", api.NewsletterResubscribe)
			r.With(guard.Sequence(ratelimit.EndpointNewsletterConfirm, ratelimit.ModeHTML, ratelimit.IPSpec(), tokenSpec())).
				Get("/confirm", api.NewsletterConfirm)
			r.With(guard.Sequence(ratelimit.EndpointNewsletterUnsubscribe, ratelimit.ModeHTML, ratelimit.IPSpec(), tokenSpec())).
				Get("/unsubscribe", api.NewsletterUnsubscribe)
		})

		r.With(guard.IPGuard(ratelimit.EndpointPasswordReset, ratelimit.ModeJSON)).
			Post("/password-reset", api.PasswordReset)

		r.With(guard.IPGuard(ratelimit.EndpointDownload, ratelimit.ModeJSON)).
			Post("/downloads/{id}", api.Download)
	})

	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/version", handlers.VersionHandler(version))
}
