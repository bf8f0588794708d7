package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-dashboard/internal/domain/parking"
)

type Metrics struct {
	registry *prometheus.Registry

	occupancy     *prometheus.GaugeVec
	traffic       *prometheus.GaugeVec
	upstreamTotal *prometheus.CounterVec
	upstreamDur   *prometheus.HistogramVec
	lastSuccessTS prometheus.Gauge
	cacheTotal    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.occupancy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "parking",
		Name:      "vehicles_present",
		Help:      "Vehicles currently in the lot by vehicle type",
	}, []string{"vehicle_type"})
	m.traffic = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "parking",
		Name:      "events_today",
		Help:      "Entry and exit events recorded today by vehicle type",
	}, []string{"vehicle_type", "direction"})
	m.upstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parking_dashboard",
		Name:      "upstream_requests_total",
		Help:      "Parking API requests by endpoint and status",
	}, []string{"endpoint", "status"})
	m.upstreamDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parking_dashboard",
		Name:      "upstream_request_duration_seconds",
		Help:      "Parking API request latency including retries",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parking_dashboard",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful occupancy computation",
	})
	m.cacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parking_dashboard",
		Name:      "snapshot_cache_total",
		Help:      "Event snapshot cache lookups by result",
	}, []string{"result"})

	m.registry.MustRegister(
		m.occupancy, m.traffic,
		m.upstreamTotal, m.upstreamDur, m.lastSuccessTS,
		m.cacheTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveUpstream(endpoint, status string, elapsed time.Duration) {
	m.upstreamTotal.WithLabelValues(endpoint, status).Inc()
	m.upstreamDur.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.cacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.cacheTotal.WithLabelValues("miss").Inc()
}

// SetDashboard publishes a freshly computed dashboard.
func (m *Metrics) SetDashboard(d parking.Dashboard) {
	m.occupancy.WithLabelValues(string(parking.VehicleMotorbike)).Set(float64(d.Occupancy.Motorbike))
	m.occupancy.WithLabelValues(string(parking.VehicleScooter)).Set(float64(d.Occupancy.Scooter))
	m.occupancy.WithLabelValues(string(parking.VehicleBicycle)).Set(float64(d.Occupancy.Bicycle))
	for _, tc := range d.Traffic {
		m.traffic.WithLabelValues(string(tc.VehicleType), string(parking.EventEntry)).Set(float64(tc.Entries))
		m.traffic.WithLabelValues(string(tc.VehicleType), string(parking.EventExit)).Set(float64(tc.Exits))
	}
	if !d.Stale {
		m.lastSuccessTS.Set(float64(d.GeneratedAt.Unix()))
	}
}
