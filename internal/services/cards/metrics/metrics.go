// Package metrics exposes Prometheus instruments for card issuance.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the issuance instruments. A nil *Metrics records nothing.
type Metrics struct {
	CardsIssued       *prometheus.CounterVec
	RedeemFailures    prometheus.Counter
	TokensGenerated   prometheus.Counter
	RenderLatency     prometheus.Histogram
	ArtifactsPruned   *prometheus.CounterVec
	IntakeTransitions *prometheus.CounterVec
}

// New registers the instruments with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		CardsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardpress_cards_issued_total",
			Help: "Cards issued by institution",
		}, []string{"institution"}),

		RedeemFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardpress_token_redeem_failures_total",
			Help: "Redemptions rejected because the token was missing or used",
		}),

		TokensGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardpress_tokens_generated_total",
			Help: "Tokens created by administrators",
		}),

		RenderLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardpress_render_duration_seconds",
			Help:    "Duration of card composition and encoding",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ArtifactsPruned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardpress_artifacts_pruned_total",
			Help: "Files removed by retention cleanup",
		}, []string{"kind"}), // kind: "card", "photo"

		IntakeTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardpress_intake_transitions_total",
			Help: "Intake state transitions by target state",
		}, []string{"state"}),
	}
}

// IncrementIssued records one issued card.
func (m *Metrics) IncrementIssued(institutionID string) {
	if m != nil {
		m.CardsIssued.WithLabelValues(institutionID).Inc()
	}
}

// IncrementRedeemFailure records a rejected redemption.
func (m *Metrics) IncrementRedeemFailure() {
	if m != nil {
		m.RedeemFailures.Inc()
	}
}

// AddTokensGenerated records n created tokens.
func (m *Metrics) AddTokensGenerated(n int) {
	if m != nil && n > 0 {
		m.TokensGenerated.Add(float64(n))
	}
}

// ObserveRender records a render duration.
func (m *Metrics) ObserveRender(d time.Duration) {
	if m != nil {
		m.RenderLatency.Observe(d.Seconds())
	}
}

// AddPruned records removed files of kind.
func (m *Metrics) AddPruned(kind string, n int) {
	if m != nil && n > 0 {
		m.ArtifactsPruned.WithLabelValues(kind).Add(float64(n))
	}
}

// IncrementTransition records an intake transition into state.
func (m *Metrics) IncrementTransition(state string) {
	if m != nil {
		m.IntakeTransitions.WithLabelValues(state).Inc()
	}
}
