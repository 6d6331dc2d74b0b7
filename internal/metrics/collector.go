package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/parkwatch/internal/audit"
	"github.com/rickgao/parkwatch/internal/connection"
	"github.com/rickgao/parkwatch/internal/router"
)

// Sources are the stats functions read at scrape time. Nil sources are skipped.
type Sources struct {
	Connection func() connection.ManagerStats
	Dispatcher func() router.DispatcherStats
	Audit      func() audit.BufferStats
	Pool       func() *pgxpool.Pool
}

// StatsCollector exports component counters as const metrics.
type StatsCollector struct {
	src Sources

	sessionsDesc      *prometheus.Desc
	reconnectsDesc    *prometheus.Desc
	replaysDesc       *prometheus.Desc
	subscriptionsDesc *prometheus.Desc
	sendErrorsDesc    *prometheus.Desc

	framesDesc  *prometheus.Desc
	eventsDesc  *prometheus.Desc
	droppedDesc *prometheus.Desc
	panicsDesc  *prometheus.Desc

	auditReceivedDesc *prometheus.Desc
	auditEvictedDesc  *prometheus.Desc

	poolAcquiredDesc *prometheus.Desc
	poolIdleDesc     *prometheus.Desc
	poolTotalDesc    *prometheus.Desc
}

// NewStatsCollector creates a collector over src.
func NewStatsCollector(src Sources) *StatsCollector {
	name := func(n string) string { return prometheus.BuildFQName(namespace, "", n) }
	return &StatsCollector{
		src:               src,
		sessionsDesc:      prometheus.NewDesc(name("sessions_total"), "Successful stream connects", nil, nil),
		reconnectsDesc:    prometheus.NewDesc(name("reconnects_total"), "Reconnect attempts scheduled", nil, nil),
		replaysDesc:       prometheus.NewDesc(name("replayed_subscriptions_total"), "Subscribe frames sent during replay", nil, nil),
		subscriptionsDesc: prometheus.NewDesc(name("subscriptions"), "Gates in the subscription registry", nil, nil),
		sendErrorsDesc:    prometheus.NewDesc(name("send_errors_total"), "Outbound frames that failed to send", nil, nil),
		framesDesc:        prometheus.NewDesc(name("frames_received_total"), "Inbound frames handed to the dispatcher", nil, nil),
		eventsDesc:        prometheus.NewDesc(name("events_dispatched_total"), "Decoded events delivered to listeners", nil, nil),
		droppedDesc:       prometheus.NewDesc(name("frames_dropped_total"), "Inbound frames dropped by reason", []string{"reason"}, nil),
		panicsDesc:        prometheus.NewDesc(name("listener_panics_total"), "Recovered listener panics", nil, nil),
		auditReceivedDesc: prometheus.NewDesc(name("audit_entries_total"), "Audit entries received", nil, nil),
		auditEvictedDesc:  prometheus.NewDesc(name("audit_evicted_total"), "Audit entries evicted by the capacity limit", nil, nil),
		poolAcquiredDesc:  prometheus.NewDesc(name("pgxpool_acquired"), "Acquired snapshot store connections", nil, nil),
		poolIdleDesc:      prometheus.NewDesc(name("pgxpool_idle"), "Idle snapshot store connections", nil, nil),
		poolTotalDesc:     prometheus.NewDesc(name("pgxpool_total"), "Total snapshot store connections", nil, nil),
	}
}

// Register registers the collector on reg (or the default registerer if nil).
func (c *StatsCollector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	_, err := register(reg, prometheus.Collector(c))
	return err
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessionsDesc
	ch <- c.reconnectsDesc
	ch <- c.replaysDesc
	ch <- c.subscriptionsDesc
	ch <- c.sendErrorsDesc
	ch <- c.framesDesc
	ch <- c.eventsDesc
	ch <- c.droppedDesc
	ch <- c.panicsDesc
	ch <- c.auditReceivedDesc
	ch <- c.auditEvictedDesc
	ch <- c.poolAcquiredDesc
	ch <- c.poolIdleDesc
	ch <- c.poolTotalDesc
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	if c.src.Connection != nil {
		s := c.src.Connection()
		counter(c.sessionsDesc, float64(s.Sessions))
		counter(c.reconnectsDesc, float64(s.Reconnects))
		counter(c.replaysDesc, float64(s.Replays))
		gauge(c.subscriptionsDesc, float64(s.Subscriptions))
		counter(c.sendErrorsDesc, float64(s.SendErrors))
	}

	if c.src.Dispatcher != nil {
		s := c.src.Dispatcher()
		counter(c.framesDesc, float64(s.MessagesReceived))
		counter(c.eventsDesc, float64(s.EventsDispatched))
		counter(c.droppedDesc, float64(s.ParseErrors), "malformed")
		counter(c.droppedDesc, float64(s.UnknownMessages), "unknown_kind")
		counter(c.panicsDesc, float64(s.ListenerPanics))
	}

	if c.src.Audit != nil {
		s := c.src.Audit()
		counter(c.auditReceivedDesc, float64(s.TotalReceived))
		counter(c.auditEvictedDesc, float64(s.Evicted))
	}

	if c.src.Pool != nil {
		if pool := c.src.Pool(); pool != nil {
			if stat := pool.Stat(); stat != nil {
				gauge(c.poolAcquiredDesc, float64(stat.AcquiredConns()))
				gauge(c.poolIdleDesc, float64(stat.IdleConns()))
				gauge(c.poolTotalDesc, float64(stat.TotalConns()))
			}
		}
	}
}
