// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	LobbyPlayers     prometheus.Gauge
	BallsSold        prometheus.Counter
	RacesStarted     prometheus.Counter
	RacesFinished    prometheus.Counter
	RaceDuration     prometheus.Histogram
	TickDuration     prometheus.Histogram
	MessagesReceived prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected sessions",
		}),
		LobbyPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lobby_players",
			Help:      "Number of players waiting in the lobby",
		}),
		BallsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balls_sold_total",
			Help:      "Total number of balls purchased",
		}),
		RacesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_started_total",
			Help:      "Total number of races started",
		}),
		RacesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_finished_total",
			Help:      "Total number of races finished",
		}),
		RaceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "race_duration_seconds",
			Help:      "Race duration from promotion to finish",
			Buckets:   prometheus.LinearBuckets(5, 5, 12),
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Simulation tick processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of client packets received",
		}),
	}

	prometheus.MustRegister(
		m.OnlinePlayers,
		m.LobbyPlayers,
		m.BallsSold,
		m.RacesStarted,
		m.RacesFinished,
		m.RaceDuration,
		m.TickDuration,
		m.MessagesReceived,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	// 添加expvar指标
	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetLobbyPlayers(count int) {
	m.metrics.LobbyPlayers.Set(float64(count))
}

func (m *Monitor) AddBallsSold(count int) {
	m.metrics.BallsSold.Add(float64(count))
}

func (m *Monitor) IncRacesStarted() {
	m.metrics.RacesStarted.Inc()
}

func (m *Monitor) ObserveRaceFinished(duration time.Duration) {
	m.metrics.RacesFinished.Inc()
	m.metrics.RaceDuration.Observe(duration.Seconds())
}

func (m *Monitor) ObserveTick(duration time.Duration) {
	m.metrics.TickDuration.Observe(duration.Seconds())
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}
