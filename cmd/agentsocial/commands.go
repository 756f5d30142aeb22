package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/urfave/cli/v2"

	"github.com/easeaico/agent-social/internal/config"
	"github.com/easeaico/agent-social/internal/engine"
	"github.com/easeaico/agent-social/internal/expression"
	"github.com/easeaico/agent-social/internal/moderation"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/repository"
)

func runPass(cctx *cli.Context) error {
	ctx := cctx.Context
	a, err := setup(cctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.RegisterAgents(ctx, a.profiles.IDs()); err != nil {
		return err
	}
	if err := a.engine.LoadState(ctx, a.store); err != nil {
		return err
	}

	report, passErr := a.engine.RunPass(ctx, time.Now())
	if err := a.engine.SaveState(ctx, a.store); err != nil {
		slog.Error("failed to save engine state", "err", err)
		if passErr == nil {
			passErr = err
		}
	}
	pushMetrics(a.cfg.Metrics)
	if passErr != nil {
		return passErr
	}
	return printJSON(report)
}

func pushMetrics(cfg config.MetricsConfig) {
	if cfg.PushgatewayURL == "" {
		return
	}
	err := push.New(cfg.PushgatewayURL, cfg.Job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
	if err != nil {
		slog.Warn("failed to push metrics", "url", cfg.PushgatewayURL, "err", err)
	}
}

func runValidate(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	profiles, err := personality.LoadDir(cfg.Profiles.Dir)
	if err != nil {
		return err
	}
	if _, err := moderation.LoadPatterns(cfg.Moderation.PatternsFile); err != nil {
		return err
	}

	memes := expression.NewGenerator()
	reactions := expression.NewCatalog(cfg.Expression.ReactionBaseURL)
	for _, p := range profiles.All() {
		for _, r := range p.Expression.FavoriteReactions {
			if !reactions.Known(r.Reaction) {
				slog.Warn("reaction is not in the built-in catalog", "agent_id", p.AgentID, "reaction", r.Reaction)
			}
		}
		for _, m := range p.Expression.MemePreferences {
			if _, ok := memes.Slots(m.Template); !ok {
				slog.Warn("unknown meme template is ignored", "agent_id", p.AgentID, "template", m.Template, "known", memes.Templates())
			}
		}
	}
	fmt.Printf("ok: %d profiles\n", profiles.Len())
	return nil
}

func runHealth(cctx *cli.Context) error {
	ctx := cctx.Context
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	mod, err := moderation.New(cfg.Moderation, moderation.DefaultPatterns())
	if err != nil {
		return err
	}
	var snap moderation.Snapshot
	ok, err := store.LoadState(ctx, engine.StateModeration, &snap)
	if err != nil {
		return err
	}
	if ok {
		mod.Restore(snap)
	}
	return printJSON(mod.Health(time.Now()))
}

func runMemories(cctx *cli.Context) error {
	ctx := cctx.Context
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.RecentMemories(ctx, cctx.String("agent"), cctx.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(recs)
}

func runMigrate(cctx *cli.Context) error {
	ctx := cctx.Context
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	profiles, err := personality.LoadDir(cfg.Profiles.Dir)
	if err != nil {
		return err
	}
	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AutoMigrate(ctx); err != nil {
		return err
	}
	if err := store.RegisterAgents(ctx, profiles.IDs()); err != nil {
		return err
	}
	slog.Info("database migrated", "agents", profiles.Len())
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
