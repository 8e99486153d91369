package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DiscoveryRuns.Inc()
	m.RegisteredFiles.Set(3)
	m.SkippedFiles.WithLabelValues(SkipUnresolved).Add(2)
	m.Searches.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["logan_discovery_runs_total"])
	assert.True(t, names["logan_registry_files"])
	assert.True(t, names["logan_discovery_skipped_files_total"])
	assert.True(t, names["logan_search_requests_total"])

	assert.Equal(t, float64(3), testutil.ToFloat64(m.RegisteredFiles))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SkippedFiles.WithLabelValues(SkipUnresolved)))
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Two instances on distinct registries must not collide.
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
		Noop()
		Noop()
	})
}
