// Package metrics exposes synapsed's internal counters on a loopback-only
// debug HTTP endpoint, scaled down from a full metrics stack to the handful
// of numbers worth watching in a single-process local daemon (spec.md §5).
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counters synapsed increments as it serves requests.
type Collector struct {
	RequestsServed     *prometheus.CounterVec
	Phase2UpdatesFired prometheus.Counter
	ProviderTimeouts   prometheus.Counter
}

// NewCollector registers a fresh counter set against its own registry, so
// a caller that never starts the debug listener pays no global-registry
// cost.
func NewCollector() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		RequestsServed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "synapse_requests_served_total",
			Help: "Requests served by synapsed, by request type.",
		}, []string{"type"}),
		Phase2UpdatesFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "synapse_phase2_updates_fired_total",
			Help: "Phase-2 (LLM-enriched) update frames sent to a client.",
		}),
		ProviderTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "synapse_provider_timeouts_total",
			Help: "Provider calls that hit their per-provider timeout and were dropped.",
		}),
	}
	return c, reg
}

// Serve starts a loopback-only HTTP server exposing /metrics until ctx is
// canceled. Intended for `127.0.0.1:<port>`, never a public interface.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("metrics: invalid address %q: %w", addr, err)
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("metrics: %q is not a loopback address", addr)
	}

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
		return err
	}
}
