// Package metrics exposes Prometheus collectors for the dispatch and
// voting pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	TasksGenerated   prometheus.Counter
	TasksDispatched  prometheus.Counter
	ProviderCalls    *prometheus.CounterVec
	RenderFailures   prometheus.Counter
	MatchesCreated   prometheus.Counter
	VotesRecorded    prometheus.Counter
	RatingUpdateErrs prometheus.Counter
}

// New registers the collectors with a fresh registry-backed promauto
// factory.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TasksGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "onnyx_tasks_generated_total",
			Help: "Total number of tasks generated",
		}),
		TasksDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "onnyx_tasks_dispatched_total",
			Help: "Total number of tasks dispatched",
		}),
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "onnyx_provider_calls_total",
			Help: "Provider calls by provider name and outcome",
		}, []string{"provider", "status"}),
		RenderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "onnyx_render_failures_total",
			Help: "Total number of failed render or artifact persistence attempts",
		}),
		MatchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "onnyx_matches_created_total",
			Help: "Total number of matches created by the pairing engine",
		}),
		VotesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "onnyx_votes_recorded_total",
			Help: "Total number of votes recorded",
		}),
		RatingUpdateErrs: factory.NewCounter(prometheus.CounterOpts{
			Name: "onnyx_rating_update_errors_total",
			Help: "Total number of rating-update failures after a recorded vote",
		}),
	}
}
