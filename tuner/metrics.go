package tuner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Controller and episode metrics, served by `paraleon run --metrics-addr`.

var (
	monitorRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paraleon",
		Subsystem: "monitor",
		Name:      "rounds_total",
		Help:      "Total monitoring rounds processed (new flow sketches)",
	})

	monitorDivergence = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "paraleon",
		Subsystem: "monitor",
		Name:      "kl_divergence",
		Help:      "KL divergence of the latest flow mix from the previous one",
	})

	monitorFlows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "paraleon",
		Subsystem: "monitor",
		Name:      "flows",
		Help:      "Live flows per class after the latest classification",
	}, []string{"class"})

	episodesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paraleon",
		Subsystem: "episode",
		Name:      "started_total",
		Help:      "Tuning episodes started, by mode",
	}, []string{"mode"})

	episodesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paraleon",
		Subsystem: "episode",
		Name:      "suppressed_total",
		Help:      "Trigger firings dropped because an episode was already running",
	})

	episodeRounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paraleon",
		Subsystem: "episode",
		Name:      "rounds_total",
		Help:      "Measuring rounds, by Metropolis outcome",
	}, []string{"outcome"})

	episodeTemperature = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "paraleon",
		Subsystem: "episode",
		Name:      "temperature",
		Help:      "Current annealing temperature",
	})

	episodeUtility = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "paraleon",
		Subsystem: "episode",
		Name:      "utility",
		Help:      "Utility of the latest measured and best solutions",
	}, []string{"solution"})

	episodeWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "paraleon",
		Subsystem: "episode",
		Name:      "telemetry_wait_seconds",
		Help:      "Wall time spent waiting for telemetry to pass a window boundary",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
