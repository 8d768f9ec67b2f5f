package consensus

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters and gauges over a round's lifecycle, the numeric
// sibling of the structured log fields the teacher attaches everywhere
// (grounded on core/system_health_logging.go's registry-plus-named-gauges
// shape).
type Metrics struct {
	registry           *prometheus.Registry
	phaseGauge         prometheus.Gauge
	proposalsTotal     prometheus.Counter
	positionChangeTot  prometheus.Counter
	roundsAcceptedTot  prometheus.Counter
	roundsExpiredTotal prometheus.Counter
}

// NewMetrics registers a fresh set of consensus gauges/counters on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with a process-wide
// default registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		phaseGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_round_phase",
			Help: "Current round phase (0=Open,1=Establish,2=Accepted,3=Expired).",
		}),
		proposalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_proposals_total",
			Help: "Proposals accepted into the current round's peer position table.",
		}),
		positionChangeTot: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_position_changes_total",
			Help: "Times this node's own avalanche position changed.",
		}),
		roundsAcceptedTot: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_rounds_accepted_total",
			Help: "Rounds that reached Accepted.",
		}),
		roundsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_rounds_expired_total",
			Help: "Rounds that reached Expired without converging.",
		}),
	}
	reg.MustRegister(m.phaseGauge, m.proposalsTotal, m.positionChangeTot, m.roundsAcceptedTot, m.roundsExpiredTotal)
	return m
}

func (m *Metrics) observePhase(p Phase) {
	if m == nil {
		return
	}
	m.phaseGauge.Set(float64(p))
}

func (m *Metrics) observeProposal() {
	if m != nil {
		m.proposalsTotal.Inc()
	}
}

func (m *Metrics) observePositionChange() {
	if m != nil {
		m.positionChangeTot.Inc()
	}
}

func (m *Metrics) observeAccepted() {
	if m != nil {
		m.roundsAcceptedTot.Inc()
	}
}

func (m *Metrics) observeExpired() {
	if m != nil {
		m.roundsExpiredTotal.Inc()
	}
}
