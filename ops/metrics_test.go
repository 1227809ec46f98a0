package ops

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evan-idocoding/searchopts/rt/pool"
)

type fakePool struct {
	name             string
	workers, pending int
}

func (p fakePool) Name() string { return p.name }
func (p fakePool) Workers() int { return p.workers }
func (p fakePool) Pending() int { return p.pending }

func TestRegistryCollector(t *testing.T) {
	t.Run("Should export values and override state", func(t *testing.T) {
		reg := newTestRegistry(t)
		require.NoError(t, reg.SetFromString("limit", "64"))
		require.NoError(t, reg.SetFromString("coordinator", "true"))

		expected := `
# HELP searchopts_parameter_overridden Whether a configuration parameter differs from its default (1) or not (0).
# TYPE searchopts_parameter_overridden gauge
searchopts_parameter_overridden{name="coordinator"} 1
searchopts_parameter_overridden{name="level"} 0
searchopts_parameter_overridden{name="limit"} 1
# HELP searchopts_parameter_value Current value of a configuration parameter.
# TYPE searchopts_parameter_value gauge
searchopts_parameter_value{name="coordinator",type="bool"} 1
searchopts_parameter_value{name="level",type="enum"} 1
searchopts_parameter_value{name="limit",type="number"} 64
`
		err := testutil.CollectAndCompare(NewRegistryCollector(reg), strings.NewReader(expected))
		require.NoError(t, err)
	})
}

func TestPoolCollector(t *testing.T) {
	t.Run("Should export workers and pending per pool", func(t *testing.T) {
		c := NewPoolCollector(fakePool{"reader", 4, 2}, fakePool{"writer", 1, 0})
		assert.Equal(t, 4, testutil.CollectAndCount(c))

		expected := `
# HELP searchopts_pool_workers Number of live workers in a pool.
# TYPE searchopts_pool_workers gauge
searchopts_pool_workers{pool="reader"} 4
searchopts_pool_workers{pool="writer"} 1
`
		require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "searchopts_pool_workers"))
	})

	t.Run("Should skip nil pools", func(t *testing.T) {
		var unset *pool.Pool
		c := NewPoolCollector(nil, unset, fakePool{"reader", 2, 0})
		assert.NotPanics(t, func() {
			assert.Equal(t, 2, testutil.CollectAndCount(c))
		})
	})
}

func TestSetCounter(t *testing.T) {
	t.Run("Should count outcomes of set and reset", func(t *testing.T) {
		reg := newTestRegistry(t)
		sets := NewSetCounter()
		promReg := prometheus.NewPedanticRegistry()
		require.NoError(t, promReg.Register(sets))

		set := ConfigSetHandler(reg, WithSetCounter(sets))
		reset := ConfigResetHandler(reg, WithSetCounter(sets))
		serve(set, http.MethodPost, "/set?name=limit&value=5")
		serve(set, http.MethodPost, "/set?name=limit&value=500")
		serve(set, http.MethodPost, "/set?name=limit&value=x")
		serve(reset, http.MethodPost, "/reset?name=limit")

		assert.Equal(t, 2.0, testutil.ToFloat64(sets.WithLabelValues("limit", "ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(sets.WithLabelValues("limit", "out_of_range")))
		assert.Equal(t, 1.0, testutil.ToFloat64(sets.WithLabelValues("limit", "invalid_value")))
	})
}
