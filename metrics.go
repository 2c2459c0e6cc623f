package resourcechart

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RowsRead         prometheus.Counter
	RowsIgnored      prometheus.Counter
	ChartSubmissions prometheus.Counter
	WebsocketClients prometheus.Gauge

	gatherer prometheus.Gatherer
}

// Registers the collectors on a private registry so several servers (and
// tests) can live in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcechart",
			Name:      "rows_read_total",
			Help:      "Number of resource rows accepted from the input.",
		}),
		RowsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcechart",
			Name:      "rows_ignored_total",
			Help:      "Number of input rows skipped because they could not be parsed.",
		}),
		ChartSubmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcechart",
			Name:      "chart_submissions_total",
			Help:      "Number of chart configurations handed to the broadcaster.",
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resourcechart",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients.",
		}),
		gatherer: registry,
	}

	registry.MustRegister(m.RowsRead, m.RowsIgnored, m.ChartSubmissions, m.WebsocketClients)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
