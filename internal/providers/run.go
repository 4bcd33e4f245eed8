package providers

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// perProviderTimeout bounds how long any single provider may run within a
// fan-out before its result is dropped. Generators/LLM calls carry their own
// tighter internal timeouts; this is the outer backstop.
const perProviderTimeout = 800 * time.Millisecond

// Run executes providers concurrently (bounded by maxConcurrent), collects
// whatever each returns within perProviderTimeout, and flattens the results.
// A provider that panics, errors internally, or times out contributes no
// suggestions and never fails the overall call (spec.md §4.12). onTimeout,
// if non-nil, is called once for every provider call that hits its deadline
// — the caller's hook for a timeout counter; pass nil to skip it.
func Run(ctx context.Context, providers []Provider, req ProviderRequest, maxPerProvider, maxConcurrent int, onTimeout func()) []ProviderSuggestion {
	results := make([][]ProviderSuggestion, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}

	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			results[i] = safeSuggest(gctx, p, req, maxPerProvider, onTimeout)
			return nil
		})
	}
	_ = g.Wait() // individual provider errors never propagate; see safeSuggest

	var out []ProviderSuggestion
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// safeSuggest isolates one provider call behind a deadline and a recover, so
// a misbehaving provider can never block or crash the fan-out.
func safeSuggest(ctx context.Context, p Provider, req ProviderRequest, max int, onTimeout func()) (out []ProviderSuggestion) {
	ctx, cancel := context.WithTimeout(ctx, perProviderTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if recover() != nil {
				out = nil
			}
		}()
		out = p.Suggest(ctx, req, max)
	}()

	select {
	case <-done:
		return out
	case <-ctx.Done():
		if onTimeout != nil {
			onTimeout()
		}
		return nil
	}
}
