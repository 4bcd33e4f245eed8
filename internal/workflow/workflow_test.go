package workflow

import (
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"git push origin main": "git push",
		"git -C /tmp status":   "git",
		"ls":                   "ls",
		"":                     "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordSkipsSelfAndEmptyTransitions(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "bigram.json"))
	p.Record("git add", "git add")
	p.Record("", "git push")
	if preds := p.Predict("git add", 5); len(preds) != 0 {
		t.Fatalf("expected no predictions from self/empty transitions, got %+v", preds)
	}
}

func TestPredictProbabilitiesSumToOne(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "bigram.json"))
	p.Record("git add", "git commit")
	p.Record("git add", "git commit")
	p.Record("git add", "git status")

	preds := p.Predict("git add", 5)
	if len(preds) != 2 {
		t.Fatalf("expected 2 distinct predictions, got %+v", preds)
	}
	if preds[0].Command != "git commit" {
		t.Fatalf("expected git commit ranked first, got %+v", preds)
	}
	sum := 0.0
	for _, p := range preds {
		sum += p.Probability
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("expected probabilities to sum to ~1, got %v", sum)
	}
}

func TestPredictTruncatesToK(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "bigram.json"))
	p.Record("git add", "git commit")
	p.Record("git add", "git push")
	p.Record("git add", "git status")
	if preds := p.Predict("git add", 2); len(preds) != 2 {
		t.Fatalf("expected truncation to k=2, got %+v", preds)
	}
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bigram.json")
	p1 := New(path)
	p1.Record("git add", "git commit")

	p2 := New(path)
	preds := p2.Predict("git add", 5)
	if len(preds) != 1 || preds[0].Command != "git commit" {
		t.Fatalf("expected reloaded predictor to recover the bigram, got %+v", preds)
	}
}
