package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

var targetLabels = []string{"instance_id", "instance_name"}

// unknownName labels targets without a Name tag.
const unknownName = "Unknown"

func labelName(t fleet.Target) string {
	if t.Name == "" {
		return unknownName
	}
	return t.Name
}

// scrapeMetrics holds the gauges for one scrape. A fresh set per scrape
// means targets that left the fleet disappear instead of going stale.
type scrapeMetrics struct {
	disk           *prometheus.GaugeVec
	memory         *prometheus.GaugeVec
	up             *prometheus.GaugeVec
	duration       *prometheus.GaugeVec
	targets        prometheus.Gauge
	scrapeDuration prometheus.Gauge
}

func newScrapeMetrics() *scrapeMetrics {
	return &scrapeMetrics{
		disk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ec2_disk_usage_percent",
			Help: "Root filesystem usage percentage",
		}, targetLabels),
		memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ec2_memory_usage_percent",
			Help: "Memory usage percentage",
		}, targetLabels),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetmon_collection_up",
			Help: "1 if the target's metrics were collected, 0 otherwise",
		}, append(append([]string{}, targetLabels...), "outcome")),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetmon_collection_duration_seconds",
			Help: "Time spent collecting from the target",
		}, targetLabels),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleetmon_targets",
			Help: "Number of targets resolved for this scrape",
		}),
		scrapeDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleetmon_scrape_duration_seconds",
			Help: "Wall-clock time of the lookup and collection for this scrape",
		}),
	}
}

func (m *scrapeMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.disk, m.memory, m.up, m.duration, m.targets, m.scrapeDuration)
}

// observe records results. Usage gauges exist only for successful targets.
func (m *scrapeMetrics) observe(results []fleet.Result, elapsed time.Duration) {
	m.targets.Set(float64(len(results)))
	m.scrapeDuration.Set(elapsed.Seconds())

	for _, r := range results {
		id, name := r.Target.ID, labelName(r.Target)
		m.duration.WithLabelValues(id, name).Set(r.Duration.Seconds())

		up := 0.0
		if s, ok := r.Outcome.Sample(); ok {
			up = 1
			m.disk.WithLabelValues(id, name).Set(float64(s.DiskPercent))
			m.memory.WithLabelValues(id, name).Set(float64(s.MemPercent))
		}
		m.up.WithLabelValues(id, name, r.Outcome.Kind().String()).Set(up)
	}
}

// buildRegistry returns a registry holding just this scrape's metrics.
func buildRegistry(results []fleet.Result, elapsed time.Duration) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	m := newScrapeMetrics()
	m.register(reg)
	m.observe(results, elapsed)
	return reg
}
