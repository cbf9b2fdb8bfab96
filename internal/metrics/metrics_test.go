package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Operation("soft_delete", "sales", "soft")
	r.Operation("soft_delete", "sales", "soft")
	r.Operation("soft_delete", "suppliers", "hard")
	r.Purged("products", 3)
	r.Purged("products", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.operations.WithLabelValues("soft_delete", "sales", "soft")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues("soft_delete", "suppliers", "hard")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.purged.WithLabelValues("products")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Operation("restore", "sales", "ok")
		r.Purged("sales", 1)
		r.Request("GET", "/healthz", "2xx", 0.01)
	})
}
