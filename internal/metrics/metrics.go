package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains every instrument exported by the feed client. Its
// Observe methods satisfy the telemetry sink interfaces the dispatch,
// datarouter and journal packages declare.
type Metrics struct {
	// connMu guards feed connection state used to count reconnects.
	connMu        sync.Mutex
	everConnected bool
	connected     bool

	// Feed and dispatch.
	FeedConnected    prometheus.Gauge
	FeedReconnects   prometheus.Counter
	MessagesReceived *prometheus.CounterVec
	MessagesRouted   *prometheus.CounterVec
	ParseErrors      prometheus.Counter

	// Producers.
	ProducerState     *prometheus.GaugeVec
	RecoveryRequests  *prometheus.CounterVec
	RecoveryDurations prometheus.Histogram

	// Caches.
	Fetches   *prometheus.CounterVec
	CacheSize *prometheus.GaugeVec

	// Journal.
	JournalRows        *prometheus.CounterVec
	JournalFlushSizes  prometheus.Histogram
	JournalFlushErrors prometheus.Counter
}

// New creates all instruments. Nothing is registered until Register is
// called.
func New() *Metrics {
	return &Metrics{
		FeedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oddsfeed",
			Subsystem: "feed",
			Name:      "connected",
			Help:      "Whether the feed websocket is connected (0 or 1)",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddsfeed",
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnections",
		}),
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "oddsfeed",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of feed messages received",
			},
			[]string{"type"},
		),
		MessagesRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "oddsfeed",
				Subsystem: "messages",
				Name:      "routed_total",
				Help:      "Total number of feed messages routed",
			},
			[]string{"type"},
		),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddsfeed",
			Subsystem: "messages",
			Name:      "parse_errors_total",
			Help:      "Total number of unparseable feed messages",
		}),
		ProducerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "oddsfeed",
				Subsystem: "producer",
				Name:      "state",
				Help:      "Producer state (0=down, 1=recovering, 2=up)",
			},
			[]string{"producer"},
		),
		RecoveryRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "oddsfeed",
				Subsystem: "producer",
				Name:      "recovery_requests_total",
				Help:      "Total number of recovery requests issued",
			},
			[]string{"producer"},
		),
		RecoveryDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oddsfeed",
			Subsystem: "producer",
			Name:      "recovery_duration_seconds",
			Help:      "Duration of completed recoveries in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "oddsfeed",
				Subsystem: "api",
				Name:      "fetches_total",
				Help:      "Total number of outbound reference-data fetches by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		CacheSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "oddsfeed",
				Subsystem: "cache",
				Name:      "items",
				Help:      "Current number of cached items",
			},
			[]string{"cache"},
		),
		JournalRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "oddsfeed",
				Subsystem: "journal",
				Name:      "rows_total",
				Help:      "Total number of rows written by table",
			},
			[]string{"table"},
		),
		JournalFlushSizes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oddsfeed",
			Subsystem: "journal",
			Name:      "flush_rows",
			Help:      "Rows per journal flush",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		JournalFlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oddsfeed",
			Subsystem: "journal",
			Name:      "flush_errors_total",
			Help:      "Total number of failed journal flushes",
		}),
	}
}

// Register registers every instrument with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.FeedConnected,
		m.FeedReconnects,
		m.MessagesReceived,
		m.MessagesRouted,
		m.ParseErrors,
		m.ProducerState,
		m.RecoveryRequests,
		m.RecoveryDurations,
		m.Fetches,
		m.CacheSize,
		m.JournalRows,
		m.JournalFlushSizes,
		m.JournalFlushErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveProducerState translates a producer state name into the gauge
// encoding.
func (m *Metrics) ObserveProducerState(producer, state string) {
	var v float64
	switch state {
	case "recovering":
		v = 1
	case "up":
		v = 2
	}
	m.ProducerState.WithLabelValues(producer).Set(v)
}

// ObserveRecoveryRequest counts one issued recovery request.
func (m *Metrics) ObserveRecoveryRequest(producer string) {
	m.RecoveryRequests.WithLabelValues(producer).Inc()
}

// ObserveRecoveryDuration records the duration of a completed recovery.
func (m *Metrics) ObserveRecoveryDuration(d time.Duration) {
	m.RecoveryDurations.Observe(d.Seconds())
}

// ObserveMessage counts one received feed message.
func (m *Metrics) ObserveMessage(msgType string) {
	m.MessagesReceived.WithLabelValues(msgType).Inc()
}

// ObserveRouted counts one successfully routed feed message.
func (m *Metrics) ObserveRouted(msgType string) {
	m.MessagesRouted.WithLabelValues(msgType).Inc()
}

// ObserveParseError counts one unparseable feed message.
func (m *Metrics) ObserveParseError() {
	m.ParseErrors.Inc()
}

// ObserveFeedConnected updates the connection gauge. A transition back
// to connected after the initial connect counts as a reconnect.
func (m *Metrics) ObserveFeedConnected(up bool) {
	m.connMu.Lock()
	reconnect := up && m.everConnected && !m.connected
	m.connected = up
	if up {
		m.everConnected = true
	}
	m.connMu.Unlock()

	if up {
		m.FeedConnected.Set(1)
	} else {
		m.FeedConnected.Set(0)
	}
	if reconnect {
		m.FeedReconnects.Inc()
	}
}

// ObserveFetch counts one outbound reference-data fetch.
func (m *Metrics) ObserveFetch(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Fetches.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveJournalRows counts rows written to one journal table.
func (m *Metrics) ObserveJournalRows(table string, n int) {
	m.JournalRows.WithLabelValues(table).Add(float64(n))
}

// ObserveJournalFlush records the size of one journal flush.
func (m *Metrics) ObserveJournalFlush(rows int) {
	m.JournalFlushSizes.Observe(float64(rows))
}

// ObserveJournalFlushError counts one failed journal flush.
func (m *Metrics) ObserveJournalFlushError() {
	m.JournalFlushErrors.Inc()
}
