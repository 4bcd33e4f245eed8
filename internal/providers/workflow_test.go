package providers

import (
	"context"
	"testing"

	"github.com/synapse-sh/synapse/internal/compctx"
)

type fakePredictor struct {
	preds []PredictedNext
}

func (f fakePredictor) Predict(prev string, k int) []PredictedNext { return f.preds }

func TestWorkflowProviderFiltersByPartialAndMinProb(t *testing.T) {
	pred := fakePredictor{preds: []PredictedNext{
		{Command: "git push", Probability: 0.6},
		{Command: "git status", Probability: 0.05},
		{Command: "npm test", Probability: 0.3},
	}}
	p := NewWorkflowProvider(pred, 0.1)
	req := ProviderRequest{
		Context:        compctx.CompletionContext{Position: compctx.PositionCommandName, Partial: "g"},
		RecentCommands: []string{"git add"},
	}
	out := p.Suggest(context.Background(), req, 10)
	if len(out) != 1 || out[0].Text != "git push" {
		t.Fatalf("expected only git push to survive prob+prefix filter, got %+v", out)
	}
}

func TestWorkflowProviderSkipsLongPartial(t *testing.T) {
	pred := fakePredictor{preds: []PredictedNext{{Command: "git push", Probability: 0.9}}}
	p := NewWorkflowProvider(pred, 0.1)
	req := ProviderRequest{
		Context:        compctx.CompletionContext{Position: compctx.PositionCommandName, Partial: "gitlon"},
		RecentCommands: []string{"git add"},
	}
	if out := p.Suggest(context.Background(), req, 10); len(out) != 0 {
		t.Fatalf("expected no suggestions once partial is >= workflowShortPartialLen, got %+v", out)
	}
}
