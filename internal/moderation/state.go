package moderation

import (
	"sort"
	"sync"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

const initialAgentScore = 50.0

// AgentSnapshot is the persisted moderation state of one agent.
type AgentSnapshot struct {
	AgentID       string      `json:"agent_id"`
	Chaos         float64     `json:"chaos_score"`
	Quality       float64     `json:"quality_score"`
	Warnings      int         `json:"warning_count"`
	LastWarning   time.Time   `json:"last_warning,omitzero"`
	CooldownUntil time.Time   `json:"cooldown_until,omitzero"`
	Actions       []time.Time `json:"recent_actions,omitempty"`
	Outputs       []string    `json:"recent_outputs,omitempty"`
}

// Snapshot is the persisted moderation state between passes.
type Snapshot struct {
	GlobalLevel   float64         `json:"global_chaos_level"`
	GlobalUpdated time.Time       `json:"global_updated_at,omitzero"`
	Agents        []AgentSnapshot `json:"agents"`
}

type agentState struct {
	mu            sync.Mutex
	chaos         float64
	quality       float64
	warnings      int
	lastWarning   time.Time
	cooldownUntil time.Time
	actions       []time.Time
	outputs       []string
	limiter       *slidingwindow.Limiter
}

func windowFunc() (slidingwindow.Window, slidingwindow.StopFunc) {
	return slidingwindow.NewLocalWindow()
}

func newAgentState(window time.Duration, limit int64) *agentState {
	lim, _ := slidingwindow.NewLimiter(window, limit, windowFunc)
	return &agentState{
		chaos:   initialAgentScore,
		quality: initialAgentScore,
		limiter: lim,
	}
}

func (s *agentState) inCooldown(now time.Time) bool {
	return now.Before(s.cooldownUntil)
}

// admit charges one action against the rate window and reports whether it
// fit. Admitted timestamps are kept for the window so they can be replayed.
func (s *agentState) admit(now time.Time, window time.Duration) bool {
	if !s.limiter.AllowN(now, 1) {
		return false
	}
	s.actions = append(s.actions, now)
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.actions) && !s.actions[i].After(cutoff) {
		i++
	}
	s.actions = s.actions[i:]
	return true
}

func (s *agentState) remember(text string, keep int) {
	if keep <= 0 {
		return
	}
	s.outputs = append(s.outputs, text)
	if over := len(s.outputs) - keep; over > 0 {
		s.outputs = append([]string(nil), s.outputs[over:]...)
	}
}

func (s *agentState) snapshot(agentID string) AgentSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AgentSnapshot{
		AgentID:       agentID,
		Chaos:         s.chaos,
		Quality:       s.quality,
		Warnings:      s.warnings,
		LastWarning:   s.lastWarning,
		CooldownUntil: s.cooldownUntil,
		Actions:       append([]time.Time(nil), s.actions...),
		Outputs:       append([]string(nil), s.outputs...),
	}
}

func restoreAgent(snap AgentSnapshot, window time.Duration, limit int64, keep int) *agentState {
	s := newAgentState(window, limit)
	s.chaos = clampScore(snap.Chaos)
	s.quality = clampScore(snap.Quality)
	s.warnings = snap.Warnings
	s.lastWarning = snap.LastWarning
	s.cooldownUntil = snap.CooldownUntil

	actions := append([]time.Time(nil), snap.Actions...)
	sort.Slice(actions, func(i, j int) bool { return actions[i].Before(actions[j]) })
	for _, at := range actions {
		s.admit(at, window)
	}
	for _, out := range snap.Outputs {
		s.remember(out, keep)
	}
	return s
}
