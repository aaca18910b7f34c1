package ratelimit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultTableValidates(t *testing.T) {
	require.NoError(t, DefaultTable().Validate())
}

func TestEveryEndpointHasIPPolicy(t *testing.T) {
	table := DefaultTable()
	endpoints := []Endpoint{
		EndpointContact,
		EndpointNewsletterSubscribe,
		EndpointNewsletterConfirm,
		EndpointNewsletterUnsubscribe,
		EndpointNewsletterResubscribe,
		EndpointPasswordReset,
		EndpointDownload,
	}

	for _, endpoint := range endpoints {
		_, ok := table.Lookup(endpoint, DimensionIP)
		require.True(t, ok, "endpoint %s must have an IP policy", endpoint)
	}
}

func TestLookupUnknownEndpoint(t *testing.T) {
	_, ok := DefaultTable().Lookup(Endpoint("gallery"), DimensionIP)
	require.False(t, ok)
}

func TestPolicyValidate(t *testing.T) {
	valid := Policy{Name: "contact:ip", Capacity: 5, Window: time.Minute, Namespace: "contact"}
	require.NoError(t, valid.Validate())

	require.Error(t, Policy{Name: "x", Capacity: 0, Window: time.Minute, Namespace: "x"}.Validate())
	require.Error(t, Policy{Name: "x", Capacity: 1, Window: 0, Namespace: "x"}.Validate())
	require.Error(t, Policy{Name: "x", Capacity: 1, Window: time.Minute}.Validate())
}

func TestApplyOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policies:
  password-reset:ip:
    capacity: 10
    window: 5m
  download:id:
    capacity: 50
`), 0o600))

	table := DefaultTable()
	require.NoError(t, table.ApplyOverridesFile(path))

	reset, ok := table.Lookup(EndpointPasswordReset, DimensionIP)
	require.True(t, ok)
	require.Equal(t, 10, reset.Capacity)
	require.Equal(t, 5*time.Minute, reset.Window)

	download, ok := table.Lookup(EndpointDownload, DimensionIdentity)
	require.True(t, ok)
	require.Equal(t, 50, download.Capacity)
	require.Equal(t, time.Hour, download.Window, "window untouched when override omits it")
}

func TestApplyOverridesFileUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policies:
  gallery:ip:
    capacity: 10
`), 0o600))

	require.Error(t, DefaultTable().ApplyOverridesFile(path))
}

func TestPoliciesSorted(t *testing.T) {
	all := DefaultTable().Policies()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].Name, all[i].Name)
	}
}
