package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the application.
// It covers both surfaces: the Telegram bot and the REST API.
type Metrics struct {
	CommandReceived     *prometheus.CounterVec   // Counter for received bot commands
	SentMessages        *prometheus.CounterVec   // Counter for sent messages
	OrdersCreated       prometheus.Counter       // Counter for persisted wash orders
	CacheOps            *prometheus.CounterVec   // Counter for redis cache operations
	DBQueryDuration     *prometheus.HistogramVec // Histogram for database query durations
	ReportGeneration    *prometheus.HistogramVec // Histogram for report generation durations
	HTTPRequestDuration *prometheus.HistogramVec // Histogram for REST request durations
}

// NewMetrics creates a new Metrics instance with the provided Prometheus Registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CommandReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Total number of used commands",
		}, []string{"command"}), // command: /start, /users, new_order
		SentMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_messages_sent_total",
			Help: "Output bot activity",
		}, []string{"type"}), // type: text, edit, file, error
		OrdersCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wash_orders_created_total",
			Help: "Total number of wash orders persisted via any surface",
		}),
		CacheOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Redis cache operations by result",
		}, []string{"operation", "result"}), // operation: get, set; result: hit, miss, success, error
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'create_order', 'list_orders'
		ReportGeneration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "report_generation_duration_seconds",
			Help: "Duration of report excel generation.",
		}, []string{"period"}), // period: last_7d, last_1m, current_1m
		HTTPRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of REST API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}
