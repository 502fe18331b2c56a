// Package metrics собирает метрики клиента: исходящие HTTP-запросы к бэкенду
// и проверки статуса подписки. Метрики можно отдать по /metrics, пока клиент
// работает в долгом режиме (ожидание подтверждения оплаты).
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics держит собственный реестр, чтобы не смешиваться с глобальным.
type Metrics struct {
	Registry      *prometheus.Registry
	inFlight      prometheus.Gauge
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	pendingChecks *prometheus.CounterVec
}

// New регистрирует все метрики клиента.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mirzo_client_in_flight_requests",
			Help: "Requests to the Mirzo API currently in flight.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mirzo_client_requests_total",
			Help: "Requests to the Mirzo API by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirzo_client_request_duration_seconds",
			Help:    "Latency of requests to the Mirzo API.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method"}),
		pendingChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mirzo_pending_checks_total",
			Help: "Subscription status checks while waiting for approval, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.inFlight, m.requests, m.duration, m.pendingChecks)
	return m
}

// InstrumentRoundTripper оборачивает транспорт счётчиками и гистограммой.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(m.inFlight,
		promhttp.InstrumentRoundTripperCounter(m.requests,
			promhttp.InstrumentRoundTripperDuration(m.duration, next),
		),
	)
}

// PendingCheck учитывает одну проверку статуса подписки.
func (m *Metrics) PendingCheck(result string) {
	m.pendingChecks.WithLabelValues(result).Inc()
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve публикует /metrics на addr до отмены ctx.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	const op = "metrics.Serve"

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics server starting", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}
