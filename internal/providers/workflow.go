package providers

import (
	"context"
	"strings"

	"github.com/synapse-sh/synapse/internal/compctx"
)

// Predictor is the narrow slice of workflow.Predictor this provider needs.
type Predictor interface {
	Predict(prev string, k int) []PredictedNext
}

// PredictedNext mirrors workflow.Prediction without importing that package,
// keeping providers decoupled from the predictor's persistence concerns.
type PredictedNext struct {
	Command     string
	Probability float64
}

const workflowShortPartialLen = 5

// WorkflowProvider consults the bigram table keyed by the session's last
// accepted command (spec.md §4.5.5).
type WorkflowProvider struct {
	predictor  Predictor
	minProb    float64
}

func NewWorkflowProvider(predictor Predictor, minProb float64) *WorkflowProvider {
	return &WorkflowProvider{predictor: predictor, minProb: minProb}
}

// Suggest implements Provider.
func (p *WorkflowProvider) Suggest(_ context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	ctx := req.Context
	if ctx.Position != compctx.PositionCommandName || len(ctx.Partial) >= workflowShortPartialLen {
		return nil
	}
	if len(req.RecentCommands) == 0 {
		return nil
	}
	prev := req.RecentCommands[0]

	preds := p.predictor.Predict(prev, max)
	var out []ProviderSuggestion
	for _, pr := range preds {
		if pr.Probability < p.minProb {
			continue
		}
		if ctx.Partial != "" && !strings.HasPrefix(pr.Command, ctx.Partial) {
			continue
		}
		out = append(out, ProviderSuggestion{
			Text:   pr.Command,
			Source: SourceWorkflow,
			Score:  pr.Probability,
			Kind:   KindCommand,
		})
	}
	return out
}
