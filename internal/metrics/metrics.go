package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coachboard", Name: "mutations_total", Help: "Student mutations by kind",
	}, []string{"kind"})
	WatchSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coachboard", Name: "watch_sessions", Help: "Open live-roster streams",
	})
	StoreOps = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coachboard", Name: "store_op_seconds", Help: "Document store latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(Mutations, WatchSessions, StoreOps)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveStoreOp(op string, d time.Duration) { StoreOps.WithLabelValues(op).Observe(d.Seconds()) }
