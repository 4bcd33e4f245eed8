package providers

import (
	"context"
	"testing"
	"time"
)

type fakeProvider struct {
	suggestions []ProviderSuggestion
	delay       time.Duration
	panics      bool
}

func (f fakeProvider) Suggest(ctx context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil
		}
	}
	return f.suggestions
}

func TestRunFlattensAllProviders(t *testing.T) {
	ps := []Provider{
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "a"}}},
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "b"}, {Text: "c"}}},
	}
	out := Run(context.Background(), ps, ProviderRequest{}, 10, 4, nil)
	if len(out) != 3 {
		t.Fatalf("expected 3 suggestions, got %d: %+v", len(out), out)
	}
}

func TestRunDropsSlowProvider(t *testing.T) {
	ps := []Provider{
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "fast"}}},
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "slow"}}, delay: 2 * time.Second},
	}
	start := time.Now()
	out := Run(context.Background(), ps, ProviderRequest{}, 10, 4, nil)
	if elapsed := time.Since(start); elapsed > perProviderTimeout+500*time.Millisecond {
		t.Fatalf("Run did not bound the slow provider, took %v", elapsed)
	}
	if len(out) != 1 || out[0].Text != "fast" {
		t.Fatalf("expected only the fast provider's result, got %+v", out)
	}
}

func TestRunCallsOnTimeoutForSlowProvider(t *testing.T) {
	ps := []Provider{
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "fast"}}},
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "slow"}}, delay: 2 * time.Second},
	}
	var timeouts int
	Run(context.Background(), ps, ProviderRequest{}, 10, 4, func() { timeouts++ })
	if timeouts != 1 {
		t.Fatalf("expected onTimeout to fire once for the slow provider, got %d", timeouts)
	}
}

func TestRunIsolatesPanic(t *testing.T) {
	ps := []Provider{
		fakeProvider{panics: true},
		fakeProvider{suggestions: []ProviderSuggestion{{Text: "ok"}}},
	}
	out := Run(context.Background(), ps, ProviderRequest{}, 10, 4, nil)
	if len(out) != 1 || out[0].Text != "ok" {
		t.Fatalf("expected the panicking provider to contribute nothing, got %+v", out)
	}
}
