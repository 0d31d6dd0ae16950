package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	RecsRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recs_requests_total",
		Help: "Общее количество запросов на рекомендации",
	})
	RecsFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recs_fallback_total",
		Help: "Количество запросов, ушедших в trending-фоллбэк",
	})
	RecsBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recs_build_seconds",
		Help:    "Время построения списка рекомендаций",
		Buckets: prometheus.DefBuckets,
	})
	RecsCandidatePoolSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recs_candidate_pool_size",
		Help:    "Размер пула кандидатов до ранжирования",
		Buckets: []float64{0, 1, 5, 10, 20, 30, 40, 50},
	})
	AuditWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recs_audit_write_errors_total",
		Help: "Ошибки best-effort записи аудита рекомендаций",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		RecsRequestsTotal,
		RecsFallbackTotal,
		RecsBuildSeconds,
		RecsCandidatePoolSize,
		AuditWriteErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveRecsBuild записывает время построения списка и размер пула.
func ObserveRecsBuild(start time.Time, poolSize int) {
	RecsBuildSeconds.Observe(time.Since(start).Seconds())
	RecsCandidatePoolSize.Observe(float64(poolSize))
}

// IncRecsRequest увеличивает счётчик запросов на рекомендации.
func IncRecsRequest() {
	RecsRequestsTotal.Inc()
}

// IncRecsFallback увеличивает счётчик фоллбэков.
func IncRecsFallback() {
	RecsFallbackTotal.Inc()
}

// IncAuditWriteError увеличивает счётчик ошибок записи аудита.
func IncAuditWriteError() {
	AuditWriteErrors.Inc()
}
