// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exposes optional Prometheus instrumentation for a
// broadcast run. It is never required: a caller that never registers an
// address never pays for an HTTP listener, and the broadcast package works
// identically whether or not metrics are wired in.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the gauges and counters one broadcast run updates.
type Collector struct {
	DialAttempts   prometheus.Counter
	DialFailures   prometheus.Counter
	ActiveSessions prometheus.Gauge
	TxBroadcast    *prometheus.CounterVec
	TxRejected     *prometheus.CounterVec
	PeersResolved  prometheus.Gauge
}

// NewCollector registers a fresh set of metrics against a private registry
// and returns both the collector and the registry, which Serve exposes
// over HTTP.
func NewCollector() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		DialAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pushtx_dial_attempts_total",
			Help: "Outbound connection attempts to candidate peers.",
		}),
		DialFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pushtx_dial_failures_total",
			Help: "Outbound connection attempts that did not reach Active.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pushtx_active_sessions",
			Help: "Peer sessions currently in the Active state.",
		}),
		TxBroadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushtx_tx_broadcast_total",
			Help: "Transactions sent to a peer, by txid.",
		}, []string{"txid"}),
		TxRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushtx_tx_rejected_total",
			Help: "Reject messages received for a broadcast transaction, by txid.",
		}, []string{"txid"}),
		PeersResolved: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pushtx_peers_resolved",
			Help: "Candidate peer addresses resolved for this run.",
		}),
	}
	return c, reg
}

// Serve exposes reg's metrics on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
