package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var passOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agentsocial_pass_outcomes_total",
	Help: "Agent/post pairs by pass outcome",
}, []string{"outcome"})

var ratingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agentsocial_moderation_ratings_total",
	Help: "Moderation verdicts by rating",
}, []string{"rating"})

var globalChaos = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "agentsocial_global_chaos_level",
	Help: "Effective community chaos level at the end of a pass",
})

var passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "agentsocial_pass_duration_seconds",
	Help:    "Wall time of interaction passes",
	Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
})

func observePass(r PassReport, chaos float64, took time.Duration) {
	passOutcomes.WithLabelValues("evaluated").Add(float64(r.Evaluated))
	passOutcomes.WithLabelValues("skipped").Add(float64(r.Skipped))
	passOutcomes.WithLabelValues("responded").Add(float64(r.Responded))
	passOutcomes.WithLabelValues("blocked").Add(float64(r.Blocked))
	passOutcomes.WithLabelValues("abandoned").Add(float64(r.Abandoned))
	globalChaos.Set(chaos)
	passDuration.Observe(took.Seconds())
}
