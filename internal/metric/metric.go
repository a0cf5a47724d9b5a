package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jam_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jam_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jam_ws_active_connections",
			Help: "Open WebSocket connections",
		},
	)

	activeRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jam_rooms_active",
			Help: "Rooms currently alive",
		},
	)

	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jam_ws_messages_total",
			Help: "Inbound protocol messages by type",
		},
		[]string{"type"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jam_ws_errors_total",
			Help: "Error replies sent to clients",
		},
		[]string{"reason"},
	)

	droppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jam_broadcast_dropped_total",
			Help: "Broadcast frames dropped because a recipient could not take them",
		},
	)
)

func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() { wsActiveConnections.Inc() }

func DecrementWSActiveConnections() { wsActiveConnections.Dec() }

func SetActiveRooms(count int) { activeRooms.Set(float64(count)) }

func RecordMessage(msgType string) { messagesTotal.WithLabelValues(msgType).Inc() }

func RecordError(reason string) { errorsTotal.WithLabelValues(reason).Inc() }

func RecordDropped(n int) { droppedFrames.Add(float64(n)) }
