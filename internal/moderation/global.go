package moderation

import (
	"math"
	"sync"
	"time"
)

// Global is the community chaos level. Decay toward the baseline is applied
// lazily on read, so the stored value only changes on writes.
type Global struct {
	mu       sync.Mutex
	baseline float64
	decay    float64
	interval time.Duration
	stored   float64
	at       time.Time
}

// NewGlobal starts the level at baseline.
func NewGlobal(baseline, decay float64, interval time.Duration) *Global {
	return &Global{
		baseline: clampScore(baseline),
		decay:    decay,
		interval: interval,
		stored:   clampScore(baseline),
	}
}

// Level returns the effective level at now.
func (g *Global) Level(now time.Time) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.effective(now)
}

// Add materializes the decayed level at now, shifts it by delta and returns
// the new level.
func (g *Global) Add(delta float64, now time.Time) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stored = clampScore(g.effective(now) + delta)
	g.at = now
	return g.stored
}

// Set overwrites the stored level as observed at now.
func (g *Global) Set(level float64, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stored = clampScore(level)
	g.at = now
}

func (g *Global) raw() (float64, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stored, g.at
}

func (g *Global) effective(now time.Time) float64 {
	if g.at.IsZero() || g.interval <= 0 || !now.After(g.at) {
		return g.stored
	}
	intervals := float64(now.Sub(g.at)) / float64(g.interval)
	return clampScore(g.baseline + (g.stored-g.baseline)*math.Pow(g.decay, intervals))
}
