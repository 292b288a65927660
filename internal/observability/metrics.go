// Package observability holds the Prometheus collectors for territory activity.
package observability

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the game counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	TerritoriesCreated  *prometheus.CounterVec
	TerritoriesRejected *prometheus.CounterVec
	Conquests           prometheus.Counter
	StatUpdatesSkipped  prometheus.Counter
	TerritoryArea       prometheus.Histogram
	LiveClients         prometheus.Gauge
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	created, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territories_created_total",
		Help: "Territories persisted, labeled by creation strategy.",
	}, []string{"strategy"}))
	if err != nil {
		return nil, err
	}
	rejected, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territories_rejected_total",
		Help: "Candidate territories rejected by geometry validation, labeled by reason.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}
	conquests, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_conquests_total",
		Help: "Completed ownership transfers.",
	}))
	if err != nil {
		return nil, err
	}
	skipped, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "user_stat_updates_skipped_total",
		Help: "User stat updates skipped because the user document was missing.",
	}))
	if err != nil {
		return nil, err
	}
	area, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "territory_area_square_meters",
		Help:    "Area of persisted territories.",
		Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 25000, 50000},
	}))
	if err != nil {
		return nil, err
	}
	clients, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "live_clients",
		Help: "Connected websocket subscribers.",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:            gatherer,
		TerritoriesCreated:  created,
		TerritoriesRejected: rejected,
		Conquests:           conquests,
		StatUpdatesSkipped:  skipped,
		TerritoryArea:       area,
		LiveClients:         clients,
	}, nil
}

// Handler exposes the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveCreated records a persisted territory
func (m *Metrics) ObserveCreated(strategy string, area float64) {
	if m == nil {
		return
	}
	m.TerritoriesCreated.WithLabelValues(strategy).Inc()
	m.TerritoryArea.Observe(area)
}

// ObserveRejected records a candidate that failed validation
func (m *Metrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.TerritoriesRejected.WithLabelValues(reason).Inc()
}

// ObserveConquest records a completed conquest
func (m *Metrics) ObserveConquest() {
	if m == nil {
		return
	}
	m.Conquests.Inc()
}

// ObserveStatSkipped records a skipped user stat update
func (m *Metrics) ObserveStatSkipped() {
	if m == nil {
		return
	}
	m.StatUpdatesSkipped.Inc()
}

// AddLiveClients moves the subscriber gauge by delta
func (m *Metrics) AddLiveClients(delta int) {
	if m == nil {
		return
	}
	m.LiveClients.Add(float64(delta))
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("observability: collector already registered with incompatible type: %w", err)
		}
		return c, fmt.Errorf("observability: failed to register collector: %w", err)
	}
	return c, nil
}
