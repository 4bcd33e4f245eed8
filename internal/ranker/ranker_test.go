package ranker

import (
	"testing"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/providers"
)

func TestRankDedupesKeepingMaxScore(t *testing.T) {
	ctx := compctx.CompletionContext{Position: compctx.PositionCommandName}
	suggestions := []providers.ProviderSuggestion{
		{Text: "git", Source: providers.SourceEnvironment, Score: 0.4},
		{Text: "git", Source: providers.SourceHistory, Score: 0.9},
	}
	out := Rank(ctx, suggestions, nil, 10)
	if len(out) != 1 {
		t.Fatalf("expected dedup to 1 entry, got %+v", out)
	}
	if out[0].Source != providers.SourceHistory {
		t.Fatalf("expected the higher-scoring duplicate to win, got %+v", out[0])
	}
}

func TestRankOrdersDescendingAndTruncates(t *testing.T) {
	ctx := compctx.CompletionContext{Position: compctx.PositionSubcommand}
	suggestions := []providers.ProviderSuggestion{
		{Text: "a", Source: providers.SourceSpec, Score: 0.1},
		{Text: "b", Source: providers.SourceSpec, Score: 0.9},
		{Text: "c", Source: providers.SourceSpec, Score: 0.5},
	}
	out := Rank(ctx, suggestions, nil, 2)
	if len(out) != 2 || out[0].Text != "b" || out[1].Text != "c" {
		t.Fatalf("expected [b, c] in descending order, got %+v", out)
	}
}

func TestRecencyBonusExactPrefixBeatsFirstTokenMatch(t *testing.T) {
	exact := recencyBonus("git push origin main", []string{"git push"})
	tokenOnly := recencyBonus("git status", []string{"git push"})
	if exact <= tokenOnly {
		t.Fatalf("expected full-prefix match bonus (%v) to exceed first-token-only bonus (%v)", exact, tokenOnly)
	}
	if tokenOnly <= 0 {
		t.Fatalf("expected a half-strength bonus for first-token match, got %v", tokenOnly)
	}
}

func TestRecencyBonusNoMatch(t *testing.T) {
	if b := recencyBonus("npm install", []string{"git push"}); b != 0 {
		t.Fatalf("expected zero bonus for unrelated text, got %v", b)
	}
}

func TestBestReturnsFalseOnEmpty(t *testing.T) {
	if _, ok := Best(compctx.CompletionContext{}, nil, nil); ok {
		t.Fatalf("expected ok=false for no suggestions")
	}
}

func TestWeightTableSumsToOne(t *testing.T) {
	for key, w := range weightTable {
		sum := w.spec + w.fs + w.hist + w.env + w.flow + w.llm + w.recency
		if sum < 0.99 || sum > 1.01 {
			t.Errorf("weight row %q sums to %v, want ~1.0", key, sum)
		}
	}
}
