package completion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agentsocial_provider_attempts_total",
	Help: "Completion attempts by provider and outcome",
}, []string{"provider", "outcome"})
