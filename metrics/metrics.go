// Package metrics holds the Prometheus collectors of the bot.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Timeout lifecycle metrics
var (
	TimeoutsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durandal_timeouts_added_total",
		Help: "Total number of timeouts applied",
	})

	TimeoutsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durandal_timeouts_removed_total",
		Help: "Total number of timeouts lifted by a moderator",
	})

	TimeoutsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durandal_timeouts_expired_total",
		Help: "Total number of timeouts released by the sweeper",
	})

	TimeoutsReappliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durandal_timeouts_reapplied_total",
		Help: "Total number of timeout roles reapplied on rejoin",
	})

	ActiveTimeouts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "durandal_active_timeouts",
		Help: "Number of active timeouts across loaded communities",
	})
)

// Failure metrics
var (
	GatewayFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "durandal_gateway_failures_total",
		Help: "Total number of failed Discord calls",
	}, []string{"op"})

	StoreFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "durandal_store_failures_total",
		Help: "Total number of failed store writes",
	}, []string{"op"})
)

// Sweep metrics
var (
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "durandal_sweep_duration_seconds",
		Help:    "Duration of one expiry sweep",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
