// Package engine runs batch interaction passes: every active agent considers
// every recent post, and approved replies are persisted and remembered.
package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/agent-social/internal/expression"
	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/moderation"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/prompt"
	"github.com/easeaico/agent-social/internal/relationship"
	"github.com/easeaico/agent-social/internal/types"
)

// Storage is the persistence collaborator.
type Storage interface {
	FetchRecentPosts(ctx context.Context, now time.Time, maxAge time.Duration) ([]types.Post, error)
	FetchThread(ctx context.Context, postID int64) (types.Thread, error)
	PersistComment(ctx context.Context, env types.ResponseEnvelope) (string, error)
	ListActiveAgents(ctx context.Context) ([]string, error)
}

// Completer produces raw reply text. Failures are *types.ProviderError.
type Completer interface {
	Complete(ctx context.Context, pr prompt.Prompt, modelHint string) (string, error)
}

// Profiles resolves agent personalities.
type Profiles interface {
	Get(agentID string) (personality.Profile, error)
}

// Config tunes a pass. A non-zero Seed makes passes reproducible; zero
// derives the seed from the pass time so consecutive passes draw independent
// streams.
type Config struct {
	MaxPostAge      time.Duration
	PassBudget      time.Duration
	Workers         int
	Seed            int64
	ThreadCacheSize int
}

// Components are the stateful collaborators the engine drives.
type Components struct {
	Storage    Storage
	Completer  Completer
	Profiles   Profiles
	Memory     *memory.System
	Relations  *relationship.Tracker
	Moderation *moderation.Engine
	Memes      *expression.Generator
	Reactions  *expression.Catalog
	Prompts    *prompt.Builder
}

// Engine orchestrates passes. It holds no state of its own between passes.
type Engine struct {
	cfg Config
	Components
}

// New creates an Engine.
func New(cfg Config, c Components) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ThreadCacheSize < 1 {
		cfg.ThreadCacheSize = 256
	}
	if c.Memes == nil {
		c.Memes = expression.NewGenerator()
	}
	if c.Reactions == nil {
		c.Reactions = expression.NewCatalog("")
	}
	if c.Prompts == nil {
		c.Prompts = prompt.NewBuilder(0)
	}
	return &Engine{cfg: cfg, Components: c}
}

// PassReport summarizes one pass. Evaluated counts (agent, post) pairs whose
// response probability was sampled. Skipped counts pairs dropped before that,
// or at commit because the agent entered cooldown earlier in the pass.
type PassReport struct {
	Evaluated  int
	Skipped    int
	Responded  int
	Blocked    int
	Abandoned  int
	CommentIDs []string
}

func (r *PassReport) merge(o PassReport) {
	r.Evaluated += o.Evaluated
	r.Skipped += o.Skipped
	r.Responded += o.Responded
	r.Blocked += o.Blocked
	r.Abandoned += o.Abandoned
	r.CommentIDs = append(r.CommentIDs, o.CommentIDs...)
}

// RunPass evaluates every active agent against the recent posts, then commits
// the approved replies. Decisions only see state from before the pass.
// Provider calls share the pass budget; commits use ctx so that replies
// generated in time are not lost. Storage failures are returned.
func (e *Engine) RunPass(ctx context.Context, now time.Time) (PassReport, error) {
	start := time.Now()
	var report PassReport

	budgetCtx := ctx
	if e.cfg.PassBudget > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, e.cfg.PassBudget)
		defer cancel()
	}

	agents, err := e.Storage.ListActiveAgents(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list active agents: %w", err)
	}
	posts, err := e.Storage.FetchRecentPosts(ctx, now, e.cfg.MaxPostAge)
	if err != nil {
		return report, fmt.Errorf("failed to fetch recent posts: %w", err)
	}
	slog.Info("starting interaction pass", "agents", len(agents), "posts", len(posts))

	threads, err := newThreadCache(e.Storage, e.cfg.ThreadCacheSize)
	if err != nil {
		return report, err
	}

	plans := make([]agentPlan, len(agents))
	g, gctx := errgroup.WithContext(budgetCtx)
	g.SetLimit(e.cfg.Workers)
	for i, agentID := range agents {
		g.Go(func() error {
			plan, err := e.evaluateAgent(gctx, agentID, posts, threads, now)
			plans[i] = plan
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	reports := make([]PassReport, len(plans))
	g, cctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range plans {
		g.Go(func() error {
			r, err := e.commitAgent(cctx, &plans[i], now)
			reports[i] = r
			return err
		})
	}
	commitErr := g.Wait()

	for i := range plans {
		report.merge(plans[i].report)
		report.merge(reports[i])
	}
	observePass(report, e.Moderation.GlobalLevel(now), time.Since(start))
	if commitErr != nil {
		return report, commitErr
	}

	slog.Info("interaction pass finished",
		"evaluated", report.Evaluated,
		"skipped", report.Skipped,
		"responded", report.Responded,
		"blocked", report.Blocked,
		"abandoned", report.Abandoned,
		"duration", time.Since(start))
	return report, nil
}

func passSeed(seed int64, now time.Time) int64 {
	if seed != 0 {
		return seed
	}
	return now.UnixNano()
}

// agentRand seeds a per-agent source so results do not depend on goroutine
// scheduling.
func agentRand(seed int64, agentID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(agentID))
	return rand.New(rand.NewSource(seed + int64(h.Sum64())))
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
