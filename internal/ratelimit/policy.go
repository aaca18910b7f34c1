package ratelimit

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Endpoint identifies a protected endpoint in the policy table. Using a
// dedicated type keeps policy lookups from being stringly typed at call
// sites.
type Endpoint string

// Protected endpoints.
const (
	EndpointContact               Endpoint = "contact"
	EndpointNewsletterSubscribe   Endpoint = "newsletter-subscribe"
	EndpointNewsletterConfirm     Endpoint = "newsletter-confirm"
	EndpointNewsletterUnsubscribe Endpoint = "newsletter-unsubscribe"
	EndpointNewsletterResubscribe Endpoint = "newsletter-resubscribe"
	EndpointPasswordReset         Endpoint = "password-reset"
	EndpointDownload              Endpoint = "download"
)

// Dimension distinguishes the two guard axes of an endpoint.
type Dimension string

const (
	// DimensionIP guards against blind flooding from one address.
	DimensionIP Dimension = "ip"
	// DimensionIdentity guards against targeted abuse of one hashed
	// secondary identifier (email, token, content id).
	DimensionIdentity Dimension = "id"
)

// Policy is one named rate-limit rule: a capacity counted over a sliding
// window, scoped to a key namespace. Policies are immutable after startup.
type Policy struct {
	Name      string
	Capacity  int
	Window    time.Duration
	Namespace string
}

// Validate reports whether the policy's parameters are usable.
func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if p.Capacity <= 0 {
		return fmt.Errorf("policy %s: capacity must be positive, got %d", p.Name, p.Capacity)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %s: window must be positive, got %s", p.Name, p.Window)
	}
	if p.Namespace == "" {
		return fmt.Errorf("policy %s: namespace is required", p.Name)
	}
	return nil
}

// Table maps endpoints to their per-dimension policies. It is constructed
// once at startup and read-only afterwards; tuning a value is a
// deployment-time change, not a runtime operation.
type Table struct {
	policies map[Endpoint]map[Dimension]Policy
}

// DefaultTable returns the policy table shipped with the service. Every
// protected endpoint carries an IP policy; endpoints whose abuse cost is
// concentrated in a single identity additionally carry an identity policy.
// Windows are strict for auth-adjacent flows and looser for downloads.
func DefaultTable() *Table {
	t := &Table{policies: make(map[Endpoint]map[Dimension]Policy)}

	t.set(EndpointContact, DimensionIP, 5, 15*time.Minute)
	t.set(EndpointContact, DimensionIdentity, 3, time.Hour)

	t.set(EndpointNewsletterSubscribe, DimensionIP, 5, 15*time.Minute)
	t.set(EndpointNewsletterSubscribe, DimensionIdentity, 3, 24*time.Hour)

	t.set(EndpointNewsletterConfirm, DimensionIP, 10, 15*time.Minute)
	t.set(EndpointNewsletterConfirm, DimensionIdentity, 5, time.Hour)

	t.set(EndpointNewsletterUnsubscribe, DimensionIP, 10, 15*time.Minute)
	t.set(EndpointNewsletterUnsubscribe, DimensionIdentity, 5, time.Hour)

	t.set(EndpointNewsletterResubscribe, DimensionIP, 5, 15*time.Minute)
	t.set(EndpointNewsletterResubscribe, DimensionIdentity, 3, 24*time.Hour)

	t.set(EndpointPasswordReset, DimensionIP, 3, 30*time.Minute)
	t.set(EndpointPasswordReset, DimensionIdentity, 2, time.Hour)

	t.set(EndpointDownload, DimensionIP, 30, time.Hour)
	t.set(EndpointDownload, DimensionIdentity, 10, time.Hour)

	return t
}

func (t *Table) set(endpoint Endpoint, dim Dimension, capacity int, window time.Duration) {
	if t.policies[endpoint] == nil {
		t.policies[endpoint] = make(map[Dimension]Policy)
	}
	t.policies[endpoint][dim] = Policy{
		Name:      string(endpoint) + ":" + string(dim),
		Capacity:  capacity,
		Window:    window,
		Namespace: string(endpoint),
	}
}

// Lookup returns the policy for an endpoint and dimension.
func (t *Table) Lookup(endpoint Endpoint, dim Dimension) (Policy, bool) {
	if t == nil {
		return Policy{}, false
	}
	dims, ok := t.policies[endpoint]
	if !ok {
		return Policy{}, false
	}
	policy, ok := dims[dim]
	return policy, ok
}

// Policies returns every policy in the table, ordered by name.
func (t *Table) Policies() []Policy {
	if t == nil {
		return nil
	}

	all := make([]Policy, 0, len(t.policies)*2)
	for _, dims := range t.policies {
		for _, policy := range dims {
			all = append(all, policy)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Validate checks every policy in the table.
func (t *Table) Validate() error {
	if t == nil || len(t.policies) == 0 {
		return fmt.Errorf("policy table is empty")
	}
	for endpoint, dims := range t.policies {
		if _, ok := dims[DimensionIP]; !ok {
			return fmt.Errorf("endpoint %s has no IP policy", endpoint)
		}
		for _, policy := range dims {
			if err := policy.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

type policyOverride struct {
	Capacity int           `yaml:"capacity"`
	Window   time.Duration `yaml:"window"`
}

type overridesFile struct {
	Policies map[string]policyOverride `yaml:"policies"`
}

// ApplyOverridesFile merges per-policy capacity/window overrides from a YAML
// tuning file keyed by "{endpoint}:{dimension}". The numeric table is
// configuration; the algorithm is not tunable. Unknown policy names are an
// error so typos in the tuning file surface at startup instead of silently
// leaving the default in place.
func (t *Table) ApplyOverridesFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rate limit overrides: %w", err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse rate limit overrides: %w", err)
	}

	for name, override := range file.Policies {
		if err := t.applyOverride(name, override); err != nil {
			return err
		}
	}

	return t.Validate()
}

func (t *Table) applyOverride(name string, override policyOverride) error {
	for endpoint, dims := range t.policies {
		for dim, policy := range dims {
			if policy.Name != name {
				continue
			}
			if override.Capacity > 0 {
				policy.Capacity = override.Capacity
			}
			if override.Window > 0 {
				policy.Window = override.Window
			}
			t.policies[endpoint][dim] = policy
			return nil
		}
	}
	return fmt.Errorf("rate limit override references unknown policy %q", name)
}
