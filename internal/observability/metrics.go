package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the gateway's live prometheus registry. On-disk metrics
// snapshots remain out of scope (spec.md §1); only this in-memory registry,
// exposed by internal/httpapi's /metrics handler, exists.
type Metrics struct {
	Registry *prometheus.Registry

	QueueDepth       *prometheus.GaugeVec
	TurnsStarted     prometheus.Counter
	TurnsCompleted   prometheus.Counter
	ToolExecutions   *prometheus.CounterVec
	CronFires        *prometheus.CounterVec
	SubagentsRunning prometheus.Gauge
}

// NewMetrics registers the gateway's counters/gauges on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_queue_depth",
			Help: "Approximate occupancy of the inbound/outbound bus queues.",
		}, []string{"queue"}),
		TurnsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_turns_started_total",
			Help: "Agent turns started.",
		}),
		TurnsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_turns_completed_total",
			Help: "Agent turns that produced a final outbound reply.",
		}),
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_tool_executions_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		CronFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_cron_fires_total",
			Help: "Cron job fires by job id and outcome.",
		}, []string{"job_id", "outcome"}),
		SubagentsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_subagents_running",
			Help: "Currently running detached subagent workers.",
		}),
	}

	reg.MustRegister(m.QueueDepth, m.TurnsStarted, m.TurnsCompleted, m.ToolExecutions, m.CronFires, m.SubagentsRunning)
	return m
}
