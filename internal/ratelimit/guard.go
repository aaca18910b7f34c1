package ratelimit

import (
	"net/http"

	"go.uber.org/zap"
)

// FailurePolicy names what a guard does when the counting store errors.
// Making the choice a value at the call site keeps it visible and testable
// instead of an accidental property of error swallowing.
type FailurePolicy int

const (
	// FailOpen admits the request and logs the fault. A transient store
	// outage must not take down unrelated functionality; this is a
	// deliberate availability-over-strictness trade-off.
	FailOpen FailurePolicy = iota

	// FailClosed rejects the request with 503. Reserved for callers whose
	// risk calculus differs (none of the shipped endpoints use it; missing
	// security configuration is handled as a fatal startup error instead,
	// which is a distinct failure class).
	FailClosed
)

// Guardian evaluates guards for HTTP endpoints: it binds the admission
// engine, the policy table, and the rejection synthesizer into the
// two-phase calling convention every protected endpoint follows.
type Guardian struct {
	engine *Engine
	table  *Table
	logger *zap.Logger
}

// NewGuardian wires a counting store and policy table. A nil logger
// disables guard logging.
func NewGuardian(store CountingStore, table *Table, logger *zap.Logger) *Guardian {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guardian{
		engine: NewEngine(store),
		table:  table,
		logger: logger,
	}
}

// Admit evaluates one guard dimension for an endpoint and reports whether
// the request may proceed. On denial it writes the synthesized 429 and
// returns false; the caller must stop, and no downstream work may run.
//
// Identity-dimension identifiers are hashed here, so raw emails, tokens,
// and content ids never reach key derivation. Identifier format validation
// is the endpoint's job and must happen before calling Admit — a malformed
// identifier is a 400, not a spent budget.
//
// Endpoints without a policy for the requested dimension pass trivially.
func (g *Guardian) Admit(w http.ResponseWriter, r *http.Request, endpoint Endpoint, dim Dimension, identifier string, mode Mode, onFailure FailurePolicy) bool {
	policy, ok := g.table.Lookup(endpoint, dim)
	if !ok {
		return true
	}

	if dim == DimensionIdentity {
		identifier = HashIdentifier(identifier)
	}

	decision, err := g.engine.Evaluate(r.Context(), policy, Key(policy, dim, identifier))
	if err != nil {
		if onFailure == FailClosed {
			g.logger.Error("rate limit store failure, refusing request",
				zap.String("policy", policy.Name),
				zap.Error(err))
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return false
		}
		g.logger.Error("rate limit store failure, admitting request",
			zap.String("policy", policy.Name),
			zap.Error(err))
		return true
	}

	if !decision.Allowed {
		g.logger.Info("rate limit exceeded",
			zap.String("policy", policy.Name),
			zap.String("dimension", string(dim)),
			zap.Time("reset_at", decision.ResetAt))
		WriteRejection(w, decision, mode)
		return false
	}

	return true
}

// GuardSpec pairs one guard dimension with the function that extracts its
// identifier from a request. Extractors for the identity dimension must
// return ok=false for identifiers that fail format validation; the sequence
// then stops without spending budget and lets the handler answer 400.
type GuardSpec struct {
	Dimension Dimension
	Extract   func(r *http.Request) (identifier string, ok bool)
}

// IPSpec is the standard first guard of every sequence.
func IPSpec() GuardSpec {
	return GuardSpec{
		Dimension: DimensionIP,
		Extract: func(r *http.Request) (string, bool) {
			return ClientIP(r), true
		},
	}
}

// Sequence builds middleware running an ordered guard chain for an
// endpoint: guards evaluate in the order given, short-circuit on the first
// denial, and only then does the wrapped handler run. Endpoints whose
// secondary identifier lives in the request body instead call Admit
// directly after parsing; the ordering and short-circuit contract is the
// same either way because both paths go through Admit.
func (g *Guardian) Sequence(endpoint Endpoint, mode Mode, guards ...GuardSpec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			for _, guard := range guards {
				identifier, ok := guard.Extract(r)
				if !ok {
					// Malformed identifier: not a rate-limit concern.
					next.ServeHTTP(w, r)
					return
				}
				if !g.Admit(w, r, endpoint, guard.Dimension, identifier, mode, FailOpen) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPGuard is the first phase of the admission sequence as chi middleware:
// it runs after method/CORS handling and before any body parsing, shedding
// blind floods before parsing cost is paid. OPTIONS preflights are exempt.
func (g *Guardian) IPGuard(endpoint Endpoint, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !g.Admit(w, r, endpoint, DimensionIP, ClientIP(r), mode, FailOpen) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
