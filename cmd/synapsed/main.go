// Command synapsed is the Synapse completion daemon: one process per user
// session, listening on a unix socket for suggest/complete/interaction
// requests from the zsh widget (spec.md §4.11, §6.1).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/synapse-sh/synapse/internal/config"
	"github.com/synapse-sh/synapse/internal/interactionlog"
	"github.com/synapse-sh/synapse/internal/llm"
	"github.com/synapse-sh/synapse/internal/metrics"
	"github.com/synapse-sh/synapse/internal/nltranslate"
	"github.com/synapse-sh/synapse/internal/providers"
	"github.com/synapse-sh/synapse/internal/server"
	"github.com/synapse-sh/synapse/internal/session"
	"github.com/synapse-sh/synapse/internal/specstore"
	"github.com/synapse-sh/synapse/internal/workflow"
)

const (
	environmentRefreshInterval = 5 * time.Minute
	sessionPruneInterval       = 10 * time.Minute
	sessionMaxIdle             = 2 * time.Hour
	specStoreScanDepth         = 3
)

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", config.DefaultPath(), "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapsed: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "synapsed: creating data dir: %v\n", err)
		os.Exit(1)
	}

	if f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	cache, err := specstore.OpenCache(filepath.Join(cfg.Paths.DataDir, "specs.db"))
	if err != nil {
		log.Printf("[SYNAPSED] spec cache disabled: %v", err)
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("[SYNAPSED] shutting down")
		cancel()
	}()

	store := specstore.New(specstore.Options{
		Cache:                  cache,
		TrustProjectGenerators: cfg.Providers.TrustProjectGenerators,
		ScanDepth:              specStoreScanDepth,
	})
	if watcher, err := specstore.NewWatcher(store); err != nil {
		log.Printf("[SYNAPSED] project spec watcher disabled: %v", err)
	} else {
		store.AttachWatcher(watcher)
		go watcher.Run(ctx)
	}

	sessions := session.NewManager()
	predictor := workflow.New(filepath.Join(cfg.Paths.DataDir, "workflow.json"))
	logger := interactionlog.Open(cfg.Paths.InteractionLog, cfg.Paths.MaxLogSizeMB)
	defer logger.Close()

	fastProviders := []providers.Provider{
		providers.NewSpecProvider(store),
		providers.NewHistoryProvider(cfg.Providers.HistoryFile),
		providers.NewFilesystemProvider(),
		providers.NewEnvironmentProvider(environmentRefreshInterval),
		providers.NewWorkflowProvider(workflowPredictorAdapter{predictor}, cfg.Ranker.WorkflowMinProbability),
	}

	var slowProviders []providers.Provider
	var translator *nltranslate.Translator
	if cfg.LLM.EnableArgumentProvider || cfg.LLM.EnableNLTranslate {
		toolClient := llm.NewTier("TOOL")
		chat := func(ctx context.Context, system, user string) (string, error) {
			text, _, err := toolClient.Chat(ctx, system, user)
			return text, err
		}
		if cfg.LLM.EnableArgumentProvider {
			slowProviders = append(slowProviders, providers.NewLLMArgProvider(chat))
		}
		if cfg.LLM.EnableNLTranslate {
			translator = nltranslate.New(chat, cfg.LLM.BlocklistPatterns)
		}
	}

	pidPath := cfg.Socket.Path + ".pid"
	srv := server.New(cfg.Socket.Path, pidPath, store, cache, sessions, predictor, translator, logger, fastProviders, slowProviders)

	if cfg.Debug.MetricsAddr != "" {
		collector, registry := metrics.NewCollector()
		srv.SetMetrics(collector)
		go func() {
			if err := metrics.Serve(ctx, cfg.Debug.MetricsAddr, registry); err != nil {
				log.Printf("[SYNAPSED] metrics listener stopped: %v", err)
			}
		}()
		log.Printf("[SYNAPSED] metrics on %s/metrics", cfg.Debug.MetricsAddr)
	}

	if err := srv.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "synapsed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("[SYNAPSED] listening on %s", cfg.Socket.Path)

	go pruneSessionsLoop(ctx, sessions)

	if err := srv.Serve(ctx); err != nil {
		log.Printf("[SYNAPSED] serve error: %v", err)
		os.Exit(1)
	}
}

// pruneSessionsLoop periodically evicts sessions whose shell has gone idle,
// bounding the session manager's memory for long-running daemons.
func pruneSessionsLoop(ctx context.Context, sessions *session.Manager) {
	t := time.NewTicker(sessionPruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.PruneInactive(sessionMaxIdle); n > 0 {
				log.Printf("[SYNAPSED] pruned %d inactive sessions", n)
			}
		}
	}
}

// workflowPredictorAdapter bridges *workflow.Predictor to the providers
// package's narrower Predictor interface, which defines its own result type
// to stay decoupled from the workflow package.
type workflowPredictorAdapter struct {
	p *workflow.Predictor
}

func (a workflowPredictorAdapter) Predict(prev string, k int) []providers.PredictedNext {
	preds := a.p.Predict(prev, k)
	out := make([]providers.PredictedNext, len(preds))
	for i, p := range preds {
		out[i] = providers.PredictedNext{Command: p.Command, Probability: p.Probability}
	}
	return out
}
