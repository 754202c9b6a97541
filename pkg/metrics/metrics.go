package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/datasniffing/caramelo/pkg/models"
)

const namespace = "caramelo"

// Metrics holds all Prometheus metrics for the application.
// It implements crawler.Observer.
type Metrics struct {
	CrawlsTotal   *prometheus.CounterVec
	PagesTotal    *prometheus.CounterVec
	CrawlDuration prometheus.Histogram
	CrawlPages    prometheus.Histogram

	reg prometheus.Registerer
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CrawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "The total number of finished crawls",
		}, []string{"reason"}), // e.g. 'budget', 'exhausted', 'Policy_Robots'
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "The total number of dequeued pages by outcome",
		}, []string{"outcome"}),
		CrawlDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Wall time of a crawl run",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		CrawlPages: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_pages",
			Help:      "Pages charged to the budget per crawl run",
			Buckets:   prometheus.LinearBuckets(0, 5, 7),
		}),
		reg: reg,
	}
}

func (m *Metrics) PageProcessed(outcome string) {
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunFinished(stats models.RunStats) {
	m.CrawlsTotal.WithLabelValues(stats.TerminalReason).Inc()
	m.CrawlDuration.Observe(stats.Duration.Seconds())
	m.CrawlPages.Observe(float64(stats.PagesVisited))
}

// TrackTasks exposes task registry sizes as gauges read at scrape time
func (m *Metrics) TrackTasks(total, pending func() int) {
	factory := promauto.With(m.reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks",
		Help:      "Tasks held by the registry",
	}, func() float64 { return float64(total()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_pending",
		Help:      "Tasks whose crawl has not finished",
	}, func() float64 { return float64(pending()) })
}

// TrackHosts exposes the number of hosts held by the politeness gate
func (m *Metrics) TrackHosts(hosts func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "politeness_hosts",
		Help:      "Hosts currently tracked by the per-host politeness gate",
	}, func() float64 { return float64(hosts()) })
}
