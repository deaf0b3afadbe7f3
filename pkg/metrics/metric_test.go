package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterDefault()
		RegisterDefault()
	})
}

func TestWriteTextfile(t *testing.T) {
	Solves.WithLabelValues("optimal").Inc()
	LPSize.WithLabelValues("variables").Set(9)
	assert.Equal(t, 9.0, testutil.ToFloat64(LPSize.WithLabelValues("variables")))

	filename := filepath.Join(t.TempDir(), "amodpower.prom")
	require.NoError(t, WriteTextfile(filename))

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), `amodpower_solves_total{status="optimal"}`)
	assert.Contains(t, string(data), `amodpower_lp_size{dimension="variables"} 9`)
}
