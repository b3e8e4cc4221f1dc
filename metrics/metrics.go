// Package metrics provides Prometheus metrics for table I/O.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the registry and its formats.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Data metrics
	RowsTotal    *prometheus.CounterVec
	ColumnsTotal *prometheus.CounterVec

	// Misc
	DeprecatedOptions *prometheus.CounterVec
	FilesConverted    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with the given namespace and
// registers it with reg. A nil reg leaves the metrics unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total read/write operations by operation, format, kind and status",
		}, []string{"op", "format", "kind", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Read/write duration by operation and format",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"op", "format"}),

		RowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows read or written by operation and format",
		}, []string{"op", "format"}),
		ColumnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_total",
			Help:      "Columns read or written by operation and format",
		}, []string{"op", "format"}),

		DeprecatedOptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deprecated_options_total",
			Help:      "Calls that used a deprecated option, by option name",
		}, []string{"option"}),
		FilesConverted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_converted_total",
			Help:      "Files converted by the convert command",
		}),
	}
}

// RecordOperation records a finished read or write.
func (m *Metrics) RecordOperation(op, format, kind string, err error, rows int64, cols int, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(op, format, kind, status).Inc()
	m.OperationDuration.WithLabelValues(op, format).Observe(duration.Seconds())
	if err == nil {
		m.RowsTotal.WithLabelValues(op, format).Add(float64(rows))
		m.ColumnsTotal.WithLabelValues(op, format).Add(float64(cols))
	}
}

// RecordDeprecatedOption counts a call using a deprecated option.
func (m *Metrics) RecordDeprecatedOption(name string) {
	m.DeprecatedOptions.WithLabelValues(name).Inc()
}

// MetricsServer runs an HTTP server exposing /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address
// serving gatherer.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// StartAsync starts the metrics server in a goroutine. errs receives the
// serve error, if any, other than http.ErrServerClosed.
func (s *MetricsServer) StartAsync(errs chan<- error) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed && errs != nil {
			errs <- err
		}
	}()
}

// Stop stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
