// Package relationship tracks pairwise affinity between agents.
package relationship

import (
	"sort"
	"sync"
	"time"

	"github.com/easeaico/agent-social/internal/personality"
)

const (
	// LearningRate is how far affinity moves toward an observed sentiment.
	LearningRate = 0.1

	configuredWeight = 0.6
	observedWeight   = 0.4
	signalThreshold  = 0.2
)

// Profiles resolves configured ally/rival affinities.
type Profiles interface {
	Get(agentID string) (personality.Profile, error)
}

// State is the observed relationship of one unordered pair.
type State struct {
	A                    string    `json:"a"`
	B                    string    `json:"b"`
	Affinity             float64   `json:"affinity"`
	InteractionCount     int       `json:"interaction_count"`
	PositiveInteractions int       `json:"positive_interactions"`
	NegativeInteractions int       `json:"negative_interactions"`
	LastInteraction      time.Time `json:"last_interaction"`
}

type pairKey struct {
	lo, hi string
}

func keyOf(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Tracker is a flat adjacency map keyed by the sorted agent pair.
type Tracker struct {
	profiles Profiles
	mu       sync.RWMutex
	pairs    map[pairKey]*State
}

// NewTracker creates a Tracker. profiles may be nil.
func NewTracker(profiles Profiles) *Tracker {
	return &Tracker{
		profiles: profiles,
		pairs:    make(map[pairKey]*State),
	}
}

// Modifier blends configured and observed affinity. Pairs that never
// interacted are neutral.
func (t *Tracker) Modifier(a, b string) float64 {
	if a == b {
		return 0
	}
	t.mu.RLock()
	st, ok := t.pairs[keyOf(a, b)]
	var observed float64
	if ok {
		observed = st.Affinity
	}
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return clamp(t.configured(a, b)*configuredWeight + observed*observedWeight)
}

func (t *Tracker) configured(a, b string) float64 {
	if t.profiles == nil {
		return 0
	}
	if p, err := t.profiles.Get(a); err == nil {
		if aff, ok := p.Relationships.ConfiguredAffinity(b); ok {
			return aff
		}
	}
	if p, err := t.profiles.Get(b); err == nil {
		if aff, ok := p.Relationships.ConfiguredAffinity(a); ok {
			return aff
		}
	}
	return 0
}

// Update moves the pair's affinity toward sentiment and returns the new state.
func (t *Tracker) Update(a, b string, sentiment float64, now time.Time) State {
	if a == b {
		return State{A: a, B: b}
	}
	sentiment = clamp(sentiment)
	k := keyOf(a, b)

	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.pairs[k]
	if !ok {
		st = &State{A: k.lo, B: k.hi}
		t.pairs[k] = st
	}
	st.Affinity = clamp(st.Affinity + LearningRate*(sentiment-st.Affinity))
	st.InteractionCount++
	switch {
	case sentiment > signalThreshold:
		st.PositiveInteractions++
	case sentiment < -signalThreshold:
		st.NegativeInteractions++
	}
	st.LastInteraction = now
	return *st
}

// Get returns the observed state of the pair, if any.
func (t *Tracker) Get(a, b string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.pairs[keyOf(a, b)]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Snapshot returns every pair, sorted for stable serialization.
func (t *Tracker) Snapshot() []State {
	t.mu.RLock()
	out := make([]State, 0, len(t.pairs))
	for _, st := range t.pairs {
		out = append(out, *st)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Restore replaces the tracked pairs with states.
func (t *Tracker) Restore(states []State) {
	pairs := make(map[pairKey]*State, len(states))
	for _, st := range states {
		st := st
		k := keyOf(st.A, st.B)
		st.A, st.B = k.lo, k.hi
		st.Affinity = clamp(st.Affinity)
		pairs[k] = &st
	}
	t.mu.Lock()
	t.pairs = pairs
	t.mu.Unlock()
}

func clamp(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
