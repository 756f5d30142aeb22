package moderation

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/easeaico/agent-social/internal/config"
	"github.com/easeaico/agent-social/internal/types"
)

const (
	// scoreWeight is how far an agent's running score moves toward a single
	// reply's score.
	scoreWeight = 0.3
	// globalShare is the portion of an agent's chaos move applied to the
	// community level.
	globalShare = 0.5

	moderateChaos   = 50.0
	moderateQuality = 30.0
)

// Candidate is one reply submitted for rating.
type Candidate struct {
	AgentID   string
	Text      string
	Topics    []string
	Reactions int
	HasMeme   bool
	At        time.Time
}

// Result is the verdict for a Candidate.
type Result struct {
	Rating types.Rating
	// Text is the sanitized reply. Empty when blocked.
	Text           string
	ContentChaos   float64
	ContentQuality float64
	// Chaos and Quality are the agent's running scores after the call.
	Chaos           float64
	Quality         float64
	EnteredCooldown bool
	Reasons         []string
}

// Engine holds per-agent moderation state and the community chaos level.
// It is safe for concurrent use; calls for the same agent are serialized.
type Engine struct {
	cfg    config.ModerationConfig
	rules  *rules
	global *Global
	agents *xsync.MapOf[string, *agentState]
	now    func() time.Time
}

// New creates an Engine from the moderation settings and rule set.
func New(cfg config.ModerationConfig, patterns Patterns) (*Engine, error) {
	r, err := patterns.compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile moderation patterns: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		rules:  r,
		global: NewGlobal(cfg.Baseline, cfg.DecayFactor, cfg.DecayInterval),
		agents: xsync.NewMapOf[string, *agentState](),
		now:    time.Now,
	}, nil
}

func (e *Engine) agent(agentID string) *agentState {
	s, _ := e.agents.LoadOrCompute(agentID, func() *agentState {
		return newAgentState(e.cfg.RateLimitWindow, int64(e.cfg.RateLimitCount))
	})
	return s
}

// Rate scores a candidate, updates the agent and community state and returns
// the verdict. It never fails; an internal fault rates the candidate blocked.
func (e *Engine) Rate(c Candidate) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("moderation rating panicked", "agent_id", c.AgentID, "panic", r)
			res = Result{Rating: types.RatingBlocked, Reasons: []string{"internal moderation fault"}}
		}
	}()

	now := c.At
	if now.IsZero() {
		now = e.now()
	}

	if pattern, ok := e.rules.blockedBy(c.Text); ok {
		slog.Info("blocked candidate", "agent_id", c.AgentID, "pattern", pattern)
		return Result{Rating: types.RatingBlocked, Reasons: []string{"blocked pattern: " + pattern}}
	}

	res.Rating = types.RatingSafe
	text, modified := e.rules.sanitize(c.Text)
	if modified {
		res.Rating = types.RatingMild
		res.Reasons = append(res.Reasons, "mild profanity substituted")
	}
	res.Text = text

	st := e.agent(c.AgentID)
	st.mu.Lock()
	defer st.mu.Unlock()

	res.ContentQuality = contentQuality(e.rules, text, c.Topics, st.outputs)
	res.ContentChaos = contentChaos(e.rules, text, c.Reactions, c.HasMeme)

	prior := st.chaos
	chaosDelta := (res.ContentChaos - st.chaos) * scoreWeight
	if chaosDelta > 0 {
		chaosDelta *= 1 + e.global.Level(now)/100
	}
	st.chaos = clampScore(st.chaos + chaosDelta)
	st.quality = clampScore(st.quality + (res.ContentQuality-st.quality)*scoreWeight)
	e.global.Add(chaosDelta*globalShare, now)
	st.remember(text, e.cfg.RepetitionWindow)

	allowed := st.admit(now, e.cfg.RateLimitWindow)
	threshold := e.cfg.MaxChaosThreshold
	if !st.inCooldown(now) && (prior > threshold || st.chaos > threshold || !allowed) {
		reason := "chaos above threshold"
		if !allowed {
			reason = "rate limit exceeded"
		}
		e.enterCooldown(c.AgentID, st, now, reason)
		res.EnteredCooldown = true
		res.Reasons = append(res.Reasons, reason)
	}

	if res.ContentChaos >= moderateChaos || res.ContentQuality < moderateQuality {
		res.Rating = res.Rating.Max(types.RatingModerate)
	}
	if res.EnteredCooldown {
		res.Rating = res.Rating.Max(types.RatingFlagged)
	}
	res.Chaos = st.chaos
	res.Quality = st.quality
	return res
}

func (e *Engine) enterCooldown(agentID string, st *agentState, now time.Time, reason string) {
	st.cooldownUntil = now.Add(e.cfg.CooldownDuration)
	st.warnings++
	st.lastWarning = now
	if st.chaos > e.cfg.CooldownRecoveryScore {
		st.chaos = e.cfg.CooldownRecoveryScore
	}
	slog.Info("applied cooldown to agent",
		"agent_id", agentID,
		"until", st.cooldownUntil,
		"reason", reason,
		"warnings", st.warnings)
}

// InCooldown reports whether the agent is suspended at now.
func (e *Engine) InCooldown(agentID string, now time.Time) bool {
	st, ok := e.agents.Load(agentID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.inCooldown(now)
}

// Scores returns the agent's running chaos and quality scores.
func (e *Engine) Scores(agentID string) (chaos, quality float64, ok bool) {
	st, ok := e.agents.Load(agentID)
	if !ok {
		return 0, 0, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.chaos, st.quality, true
}

// GlobalLevel returns the effective community chaos level at now.
func (e *Engine) GlobalLevel(now time.Time) float64 {
	return e.global.Level(now)
}

// Snapshot captures the state for persistence, sorted by agent id.
func (e *Engine) Snapshot() Snapshot {
	level, at := e.global.raw()
	snap := Snapshot{GlobalLevel: level, GlobalUpdated: at}
	e.agents.Range(func(id string, st *agentState) bool {
		snap.Agents = append(snap.Agents, st.snapshot(id))
		return true
	})
	sort.Slice(snap.Agents, func(i, j int) bool { return snap.Agents[i].AgentID < snap.Agents[j].AgentID })
	return snap
}

// Restore replaces the state with snap. Recorded actions are replayed into
// fresh rate windows.
func (e *Engine) Restore(snap Snapshot) {
	e.agents.Clear()
	for _, a := range snap.Agents {
		e.agents.Store(a.AgentID, restoreAgent(a, e.cfg.RateLimitWindow, int64(e.cfg.RateLimitCount), e.cfg.RepetitionWindow))
	}
	e.global.Set(snap.GlobalLevel, snap.GlobalUpdated)
}
