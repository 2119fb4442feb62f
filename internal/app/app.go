// Package app wires the application together: database pool, embedder,
// corpus store, thematic index with its rebuild scheduler, and the
// conversational agent.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/firstclay/adam/db"
	"github.com/firstclay/adam/internal/agent"
	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
	"github.com/firstclay/adam/internal/index"
	"github.com/firstclay/adam/internal/log"
	"github.com/firstclay/adam/internal/memory"
	"github.com/firstclay/adam/internal/mood"
	"github.com/firstclay/adam/internal/persona"
	"github.com/firstclay/adam/internal/scanner"
	"github.com/firstclay/adam/internal/synthesis"
)

// App holds the composed application.
type App struct {
	Config   *config.Config
	Persona  *config.Persona
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Embedder ai.Embedder
	Corpus   *corpus.Store
	Index    *index.Index
	Memory   *memory.Store
	Agent    *agent.Agent

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// New builds the application from configuration. Migrations run before
// any component touches the database; configuration and persona errors
// abort startup. The index rebuild scheduler starts in the background.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		JSON:      cfg.LogJSON,
		AddSource: false,
	})

	p, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return nil, fmt.Errorf("loading persona: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	store, err := corpus.NewStore(pool, embedder, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating corpus store: %w", err)
	}

	idx, err := index.New(store, p, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	sc, err := scanner.New(store, idx, p, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating scanner: %w", err)
	}

	synth, err := synthesis.New(p, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating synthesizer: %w", err)
	}

	renderer, err := persona.NewRenderer(p, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	mem, err := memory.NewStore(pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating memory store: %w", err)
	}

	moods := mood.NewModel(logger)

	ag, err := agent.New(sc, synth, moods, renderer, persona.DefaultRules(), mem, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating agent: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(appCtx)

	scheduler := index.NewScheduler(idx, cfg.RebuildInterval, logger)
	eg.Go(func() error {
		scheduler.Run(egCtx)
		return nil
	})

	return &App{
		Config:   cfg,
		Persona:  p,
		Logger:   logger,
		Pool:     pool,
		Embedder: embedder,
		Corpus:   store,
		Index:    idx,
		Memory:   mem,
		Agent:    ag,
		cancel:   cancel,
		eg:       eg,
	}, nil
}

// Close stops the scheduler, drains pending memory writes and releases
// the pool.
func (a *App) Close() {
	a.cancel()
	_ = a.eg.Wait()
	a.Agent.Close()
	a.Pool.Close()
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
