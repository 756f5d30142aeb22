package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/easeaico/agent-social/internal/completion"
	"github.com/easeaico/agent-social/internal/config"
	"github.com/easeaico/agent-social/internal/engine"
	"github.com/easeaico/agent-social/internal/expression"
	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/models"
	"github.com/easeaico/agent-social/internal/moderation"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/prompt"
	"github.com/easeaico/agent-social/internal/relationship"
	"github.com/easeaico/agent-social/internal/repository"
)

// routedFamilies are extra backends used when a profile's model hint names
// them and their key is configured.
var routedFamilies = []struct {
	family   string
	provider string
	model    string
}{
	{"gemini", models.ProviderGemini, "gemini-2.5-flash"},
	{"gpt", models.ProviderOpenAI, "gpt-4o-mini"},
	{"grok", models.ProviderGrok, "grok-4-fast"},
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return nil, err
	}
	if err := setupSlog(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupSlog(opts config.LogConfig) error {
	var hopts slog.HandlerOptions
	switch strings.ToLower(opts.Level) {
	case "", "info":
		hopts.Level = slog.LevelInfo
	case "debug":
		hopts.Level = slog.LevelDebug
	case "warn":
		hopts.Level = slog.LevelWarn
	case "error":
		hopts.Level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level: %q", opts.Level)
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, &hopts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &hopts)
	default:
		return fmt.Errorf("unknown log format: %q", opts.Format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func newProvider(ctx context.Context, cfg config.LLMConfig) (*completion.Provider, error) {
	llm, err := models.New(ctx, cfg.Provider, cfg.Model, cfg.APIKeyFor(cfg.Provider))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}
	p := completion.New(llm, completion.Options{
		Provider:          cfg.Provider,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxAttempts:       cfg.MaxAttempts,
		BackoffBase:       cfg.BackoffBase,
	})
	for _, r := range routedFamilies {
		key := cfg.APIKeyFor(r.provider)
		if r.provider == cfg.Provider || key == "" {
			continue
		}
		routed, err := models.New(ctx, r.provider, r.model, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s model: %w", r.provider, err)
		}
		p.Route(r.family, r.provider, routed)
	}
	return p, nil
}

// app bundles the wired components of one command run.
type app struct {
	cfg      *config.Config
	store    *repository.Store
	profiles *personality.Registry
	engine   *engine.Engine
}

func (a *app) Close() {
	a.store.Close()
}

func setup(cctx *cli.Context) (*app, error) {
	ctx := cctx.Context
	cfg, err := loadConfig(cctx)
	if err != nil {
		return nil, err
	}
	profiles, err := personality.LoadDir(cfg.Profiles.Dir)
	if err != nil {
		return nil, err
	}
	patterns, err := moderation.LoadPatterns(cfg.Moderation.PatternsFile)
	if err != nil {
		return nil, err
	}
	mod, err := moderation.New(cfg.Moderation, patterns)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		store.Close()
		return nil, err
	}

	var archive memory.Archive
	var embedder memory.Embedder
	if cfg.Memory.Archive {
		archive = store
		if cfg.LLM.GoogleAPIKey != "" {
			e, err := memory.NewGenAIEmbedder(ctx, cfg.LLM.GoogleAPIKey, cfg.LLM.EmbeddingModel)
			if err != nil {
				store.Close()
				return nil, err
			}
			embedder = e
		}
	}

	eng := engine.New(engine.Config{
		MaxPostAge:      cfg.Engine.MaxPostAge,
		PassBudget:      cfg.Engine.PassBudget,
		Workers:         cfg.Engine.Workers,
		Seed:            cfg.Engine.Seed,
		ThreadCacheSize: cfg.Engine.ThreadCacheSize,
	}, engine.Components{
		Storage:   store,
		Completer: provider,
		Profiles:  profiles,
		Memory: memory.NewSystem(profiles, memory.Config{
			RepeatTopicThreshold: cfg.Memory.RepeatTopicThreshold,
			OpinionAlpha:         cfg.Memory.OpinionAlpha,
			ContextRecords:       cfg.Engine.ContextRecords,
		}, archive, embedder),
		Relations:  relationship.NewTracker(profiles),
		Moderation: mod,
		Memes:      expression.NewGenerator(),
		Reactions:  expression.NewCatalog(cfg.Expression.ReactionBaseURL),
		Prompts:    prompt.NewBuilder(0),
	})
	return &app{cfg: cfg, store: store, profiles: profiles, engine: eng}, nil
}
