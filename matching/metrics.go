package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the controller's prometheus counters.
type Metrics struct {
	Turns     *prometheus.CounterVec
	Questions *prometheus.CounterVec
	Degraded  prometheus.Counter
}

// NewMetrics registers the conversation counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govchat_turns_total",
				Help: "Total number of conversation turns by resulting state",
			},
			[]string{"state"},
		),
		Questions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govchat_questions_total",
				Help: "Total number of questions asked by profile field",
			},
			[]string{"field"},
		),
		Degraded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "govchat_degraded_turns_total",
				Help: "Total number of turns answered without a healthy provider or index",
			},
		),
	}
}
