package ops

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evan-idocoding/searchopts/rt/config"
)

const metricsNamespace = "searchopts"

type registryCollector struct {
	reg        *config.Registry
	value      *prometheus.Desc
	overridden *prometheus.Desc
}

// NewRegistryCollector returns a collector exporting the current value of every parameter
// (booleans as 0/1, enums as their code) and whether it differs from its default.
func NewRegistryCollector(reg *config.Registry) prometheus.Collector {
	mustRegistry(reg)
	return &registryCollector{
		reg: reg,
		value: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "parameter", "value"),
			"Current value of a configuration parameter.",
			[]string{"name", "type"}, nil,
		),
		overridden: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "parameter", "overridden"),
			"Whether a configuration parameter differs from its default (1) or not (0).",
			[]string{"name"}, nil,
		),
	}
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.overridden
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	over := make(map[string]struct{})
	for _, ov := range c.reg.ExportOverrides() {
		over[ov.Name] = struct{}{}
	}
	for _, p := range c.reg.Params() {
		var v float64
		switch pp := p.(type) {
		case *config.Number:
			v = float64(pp.Get())
		case *config.Boolean:
			if pp.Get() {
				v = 1
			}
		case *config.Enum:
			v = float64(pp.Get())
		default:
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, v, p.Name(), string(p.Type()))
		o := 0.0
		if _, ok := over[p.Name()]; ok {
			o = 1
		}
		ch <- prometheus.MustNewConstMetric(c.overridden, prometheus.GaugeValue, o, p.Name())
	}
}

// PoolStats is the view of a worker pool exported by NewPoolCollector.
type PoolStats interface {
	Name() string
	Workers() int
	Pending() int
}

type poolCollector struct {
	pools   []PoolStats
	workers *prometheus.Desc
	pending *prometheus.Desc
}

// NewPoolCollector returns a collector exporting live workers and queued tasks per pool.
// Nil pools, including typed nil pointers, are skipped.
func NewPoolCollector(pools ...PoolStats) prometheus.Collector {
	kept := make([]PoolStats, 0, len(pools))
	for _, p := range pools {
		if !isNilPool(p) {
			kept = append(kept, p)
		}
	}
	return &poolCollector{
		pools: kept,
		workers: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "pool", "workers"),
			"Number of live workers in a pool.",
			[]string{"pool"}, nil,
		),
		pending: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "pool", "pending"),
			"Number of tasks waiting in a pool queue.",
			[]string{"pool"}, nil,
		),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.pending
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, p := range c.pools {
		ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(p.Workers()), p.Name())
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(p.Pending()), p.Name())
	}
}

func isNilPool(p PoolStats) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// NewSetCounter returns the counter vector used by WithSetCounter.
// The caller registers it.
func NewSetCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "parameter",
		Name:      "set_total",
		Help:      "Administrative writes to configuration parameters, by outcome.",
	}, []string{"name", "result"})
}
