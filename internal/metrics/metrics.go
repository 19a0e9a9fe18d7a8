package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_rows_total",
			Help: "Total number of seed rows written, by table and operation",
		},
		[]string{"table", "op"},
	)
	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_events_total",
			Help: "Total number of events published to Kafka",
		},
		[]string{"topic"},
	)
	filtered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_events_filtered_total",
			Help: "Total number of events dropped by the publish filter",
		},
		[]string{"topic"},
	)
	publishLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datagen_publish_latency_seconds",
			Help:    "Kafka publish latency in seconds, until broker acknowledgement",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_connect_attempts_total",
			Help: "Connect attempts against Postgres and Kafka by result",
		},
		[]string{"target", "result"},
	)
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datagen_errors_total",
			Help: "Total number of stage failures",
		},
		[]string{"stage"},
	)
	stageRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datagen_stage_running",
			Help: "1 while a generation stage is running",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(rows, events, filtered, publishLatency, connectAttempts, errorsTotal, stageRunning)
}

func IncRow(table, op string) {
	rows.WithLabelValues(table, op).Inc()
}

func IncEvent(topic string) {
	events.WithLabelValues(topic).Inc()
}

func IncFiltered(topic string) {
	filtered.WithLabelValues(topic).Inc()
}

func ObservePublishLatency(topic string, seconds float64) {
	publishLatency.WithLabelValues(topic).Observe(seconds)
}

func IncConnectAttempt(target, result string) {
	connectAttempts.WithLabelValues(target, result).Inc()
}

func IncError(stage string) {
	errorsTotal.WithLabelValues(stage).Inc()
}

func SetStageRunning(stage string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	stageRunning.WithLabelValues(stage).Set(v)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
