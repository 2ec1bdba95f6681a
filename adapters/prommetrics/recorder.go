// Package prommetrics backs the bridge metrics contract with Prometheus
// collectors. Metric names are sanitized on first use and collectors are
// registered lazily per name.
package prommetrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-erp-bridge/core"
)

type Recorder struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewRecorder(registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Recorder{
		registerer: registerer,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	metricName := sanitizeMetricName(name)
	if metricName == "" {
		return
	}
	labelNames, labelValues := splitTags(tags)

	r.mu.Lock()
	counter, ok := r.counters[metricName]
	if !ok {
		counter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricName,
			Help: "Counter recorded by the bridge dispatcher.",
		}, labelNames)
		if err := r.registerer.Register(counter); err != nil {
			if already, isDup := err.(prometheus.AlreadyRegisteredError); isDup {
				if existing, isVec := already.ExistingCollector.(*prometheus.CounterVec); isVec {
					counter = existing
				}
			} else {
				r.mu.Unlock()
				return
			}
		}
		r.counters[metricName] = counter
	}
	r.mu.Unlock()

	counter.WithLabelValues(labelValues...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metricName := sanitizeMetricName(name)
	if metricName == "" {
		return
	}
	labelNames, labelValues := splitTags(tags)

	r.mu.Lock()
	histogram, ok := r.histograms[metricName]
	if !ok {
		histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName,
			Help:    "Histogram recorded by the bridge dispatcher.",
			Buckets: prometheus.DefBuckets,
		}, labelNames)
		if err := r.registerer.Register(histogram); err != nil {
			if already, isDup := err.(prometheus.AlreadyRegisteredError); isDup {
				if existing, isVec := already.ExistingCollector.(*prometheus.HistogramVec); isVec {
					histogram = existing
				}
			} else {
				r.mu.Unlock()
				return
			}
		}
		r.histograms[metricName] = histogram
	}
	r.mu.Unlock()

	histogram.WithLabelValues(labelValues...).Observe(value)
}

// splitTags returns names and values in a stable order so every observation
// of a metric uses the same label arity.
func splitTags(tags map[string]string) ([]string, []string) {
	if len(tags) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, tags[name])
	}
	return names, values
}

func sanitizeMetricName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return ""
	}
	var builder strings.Builder
	for _, char := range name {
		switch {
		case char >= 'a' && char <= 'z', char >= '0' && char <= '9', char == '_':
			builder.WriteRune(char)
		default:
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

var _ core.MetricsRecorder = (*Recorder)(nil)
