package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"leadrush/internal/game"
)

const namespace = "leadrush"

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected websocket snapshot clients.",
		},
	)
)

// Game loop
var (
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Game ticks by outcome (applied or skipped).",
		},
		[]string{"outcome"},
	)

	ResourcesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_produced_total",
			Help:      "Passive production by resource.",
		},
		[]string{"resource"},
	)

	AcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Customer acquisition attempts by result.",
		},
		[]string{"result"},
	)

	BoostsExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boosts_expired_total",
			Help:      "Power-up boosts that ran out, by power-up.",
		},
		[]string{"powerup"},
	)

	PowerupsSpawned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "powerups_spawned_total",
			Help:      "Power-ups offered to the player, by power-up.",
		},
		[]string{"powerup"},
	)

	GameWon = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "game_won",
			Help:      "1 once the win condition fired.",
		},
	)

	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save attempts by result.",
		},
		[]string{"result"},
	)
)

// Player actions
var (
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Successful purchases by kind and id.",
		},
		[]string{"kind", "id"},
	)

	ClicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Manual clicks by resource.",
		},
		[]string{"resource"},
	)
)

// ObserveTick folds one tick report into the loop collectors.
func ObserveTick(rep game.TickReport) {
	for _, id := range rep.ExpiredBoosts {
		BoostsExpired.WithLabelValues(id).Inc()
	}
	if rep.Skipped {
		TicksTotal.WithLabelValues("skipped").Inc()
		return
	}
	TicksTotal.WithLabelValues("applied").Inc()
	ResourcesProduced.WithLabelValues("leads").Add(rep.LeadsProduced)
	ResourcesProduced.WithLabelValues("opportunities").Add(rep.OpportunitiesProduced)
	ResourcesProduced.WithLabelValues("money").Add(rep.MoneyEarned)
	if rep.Successes > 0 {
		AcquisitionsTotal.WithLabelValues("success").Add(float64(rep.Successes))
	}
	if rep.Failures > 0 {
		AcquisitionsTotal.WithLabelValues("failure").Add(float64(rep.Failures))
	}
	if rep.Won {
		GameWon.Set(1)
	}
}

func ObserveSave(err error) {
	if err != nil {
		SavesTotal.WithLabelValues("error").Inc()
		return
	}
	SavesTotal.WithLabelValues("ok").Inc()
}

func ObserveSpawn(p game.PendingPowerup) {
	PowerupsSpawned.WithLabelValues(p.ID).Inc()
}
