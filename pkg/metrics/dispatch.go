package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// DispatchMetrics counts outbound sends per channel and report execution outcomes.
type DispatchMetrics struct {
	attempts   *prometheus.CounterVec
	executions *prometheus.CounterVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_attempts_total",
		Help: "Outbound notification attempts by channel and outcome.",
	}, []string{"channel", "outcome"})
	executions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_executions_total",
		Help: "Scheduled report executions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(attempts, executions)
	return &DispatchMetrics{attempts: attempts, executions: executions}
}

// ObserveAttempt records one send attempt.
func (m *DispatchMetrics) ObserveAttempt(channel, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// ObserveExecution records the terminal outcome of one report execution.
func (m *DispatchMetrics) ObserveExecution(outcome string) {
	if m == nil || m.executions == nil {
		return
	}
	m.executions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
