// Package app wires the assistant's subsystems into a running HTTP server.
//
// New builds everything from config: catalog, NLU pipeline, list store and
// executor, recommendation engine, and the optional LLM and STT providers.
// Run serves until the context is cancelled; Shutdown tears the stack down
// in reverse order. Inject test doubles via the functional options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/internal/config"
	"github.com/karlvoss/aisle/internal/health"
	"github.com/karlvoss/aisle/internal/list"
	listpg "github.com/karlvoss/aisle/internal/list/postgres"
	"github.com/karlvoss/aisle/internal/nlu"
	"github.com/karlvoss/aisle/internal/nlu/llmextract"
	"github.com/karlvoss/aisle/internal/observe"
	"github.com/karlvoss/aisle/internal/recommend"
	recpg "github.com/karlvoss/aisle/internal/recommend/pgvector"
	"github.com/karlvoss/aisle/internal/resilience"
	"github.com/karlvoss/aisle/internal/server"
	"github.com/karlvoss/aisle/pkg/provider/llm"
	"github.com/karlvoss/aisle/pkg/provider/stt"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App owns all subsystem lifetimes.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	index    *catalog.Index
	store    list.Store
	executor *list.Executor
	router   *nlu.Router
	engine   *recommend.Engine
	httpSrv  *http.Server

	// injected test doubles, nil unless an option set them
	llmProvider llm.Provider
	sttProvider stt.Provider
	metrics     *observe.Metrics

	closers  []func() error
	stopOnce sync.Once
}

// Option injects a dependency instead of building it from config.
type Option func(*App)

// WithStore injects a list store.
func WithStore(s list.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLLM injects an LLM provider.
func WithLLM(p llm.Provider) Option {
	return func(a *App) { a.llmProvider = p }
}

// WithSTT injects a speech-to-text provider.
func WithSTT(p stt.Provider) Option {
	return func(a *App) { a.sttProvider = p }
}

// WithMetrics injects a metrics bundle.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	idx, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.index = idx
	logger.Info("catalog loaded", "path", cfg.Catalog.Path, "items", idx.Len())

	validator := catalog.NewValidator(idx,
		cfg.Catalog.AutoCorrectThreshold, cfg.Catalog.SuggestionFloor, cfg.Catalog.MaxSuggestions)

	if err := a.initLLM(); err != nil {
		return nil, err
	}
	if err := a.initSTT(); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	a.executor = list.NewExecutor(a.store, idx, validator, cfg.List.FuzzyThreshold, a.metrics, logger)

	var fallback nlu.Fallback
	if a.llmProvider != nil {
		fallback = llmextract.New(a.llmProvider, logger)
	}
	a.router = nlu.NewRouter(nlu.NewExtractor(idx, logger), fallback, nlu.RouterConfig{
		ConfidenceThreshold: cfg.NLU.ConfidenceThreshold,
		FallbackTimeout:     time.Duration(cfg.NLU.FallbackTimeoutMs) * time.Millisecond,
	}, a.metrics, logger)

	if err := a.initEngine(ctx, validator); err != nil {
		return nil, err
	}

	srv := server.New(idx, a.router, a.executor, a.store, a.engine, a.sttProvider, a.metrics, logger)
	mux := http.NewServeMux()
	mux.Handle("/v1/", srv.Routes())
	a.healthHandler().Register(mux)

	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// initLLM builds the fallback LLM provider from config unless one was
// injected. The provider is wrapped in a circuit breaker either way: both
// call sites degrade gracefully, so fast local rejection beats a timeout per
// utterance when the provider is down.
func (a *App) initLLM() error {
	if a.llmProvider == nil {
		entry := a.cfg.Providers.LLM
		if entry.Name == "" {
			return nil
		}
		p, err := buildLLM(entry)
		if err != nil {
			return fmt.Errorf("app: build llm provider: %w", err)
		}
		a.llmProvider = p
		a.logger.Info("llm provider configured", "name", entry.Name, "model", entry.Model)
	}

	breaker := resilience.NewBreaker("llm", 5, 30*time.Second, a.logger)
	if guarded := resilience.Guard(a.llmProvider, breaker); guarded != nil {
		a.llmProvider = guarded
	}
	return nil
}

func (a *App) initSTT() error {
	if a.sttProvider != nil {
		return nil
	}
	entry := a.cfg.Providers.STT
	if entry.Name == "" {
		return nil
	}
	p, err := buildSTT(entry)
	if err != nil {
		return fmt.Errorf("app: build stt provider: %w", err)
	}
	a.sttProvider = p
	a.logger.Info("stt provider configured", "name", entry.Name, "model", entry.Model)
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if dsn := a.cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := listpg.NewStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.store = pg
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
		a.logger.Info("list store connected", "backend", "postgres")
		return nil
	}
	a.store = list.NewMemStore()
	a.logger.Info("list store connected", "backend", "memory")
	return nil
}

// initEngine assembles the suggestion sources. Each rule artifact is
// optional; a missing file just leaves that source out. The pgvector
// substitute source replaces the artifact-backed one when storage is
// configured for embeddings.
func (a *App) initEngine(ctx context.Context, validator *catalog.Validator) error {
	rc := a.cfg.Recommend
	var sources []recommend.Source

	if rules, ok := a.loadRules(filepath.Join(rc.DataDir, "co_purchase_rules.json")); ok {
		sources = append(sources, recommend.NewCoPurchaseSource(rules, a.index, rc.CoPurchaseLimit))
	}

	switch {
	case a.cfg.Storage.PostgresDSN != "" && a.cfg.Storage.EmbeddingDimensions > 0:
		sub, err := recpg.New(ctx, a.cfg.Storage.PostgresDSN, a.cfg.Storage.EmbeddingDimensions,
			rc.SimilarityFloor, rc.SubstitutesLimit)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		sources = append(sources, sub)
		a.closers = append(a.closers, func() error { sub.Close(); return nil })
		a.logger.Info("substitute source ready", "backend", "pgvector")
	default:
		if pairs, ok := a.loadRules(filepath.Join(rc.DataDir, "item_similarities.json")); ok {
			sources = append(sources, recommend.NewSubstituteSource(pairs, a.index, rc.SimilarityFloor, rc.SubstitutesLimit))
		}
	}

	if rc.DataDir != "" {
		path := filepath.Join(rc.DataDir, "seasonal_items.json")
		table, err := recommend.LoadSeasonal(path)
		switch {
		case err == nil:
			sources = append(sources, recommend.NewSeasonalSource(table, a.index, rc.SeasonalLimit))
		case errors.Is(err, os.ErrNotExist):
			a.logger.Warn("seasonal table missing, source disabled", "path", path)
		default:
			return fmt.Errorf("app: %w", err)
		}
	}

	sources = append(sources, recommend.NewReorderSource(a.store, rc.ReorderLimit))

	coldStart := recommend.NewColdStart(a.llmProvider, validator,
		time.Duration(rc.ColdStartTimeoutMs)*time.Millisecond, rc.CoPurchaseLimit, a.logger)

	a.engine = recommend.NewEngine(sources, coldStart, a.metrics, a.logger)
	return nil
}

// loadRules reads an optional rule artifact, logging instead of failing when
// the file is absent.
func (a *App) loadRules(path string) (recommend.RuleSet, bool) {
	if a.cfg.Recommend.DataDir == "" {
		return nil, false
	}
	rules, err := recommend.LoadRules(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("rule artifact missing, source disabled", "path", path)
		} else {
			a.logger.Error("rule artifact unreadable, source disabled", "path", path, "error", err)
		}
		return nil, false
	}
	return rules, true
}

func (a *App) healthHandler() *health.Handler {
	h := health.New(Version)
	h.Add("catalog", func(ctx context.Context) error {
		if a.index.Len() == 0 {
			return errors.New("catalog is empty")
		}
		return nil
	})
	h.Add("store", func(ctx context.Context) error {
		_, err := a.store.Lists(ctx)
		return err
	})
	return h
}

// Run serves HTTP until ctx is cancelled, then returns after a graceful
// shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the HTTP server and closes all resources. Safe to call
// more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: http shutdown: %w", err))
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		a.logger.Info("shutdown complete")
	})
	return errors.Join(errs...)
}
