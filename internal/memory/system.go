package memory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/types"
)

const (
	defaultDepth          = 50
	defaultContextRecords = 5
	summaryRunes          = 280
)

// Profiles resolves per-agent memory settings.
type Profiles interface {
	Get(agentID string) (personality.Profile, error)
}

// Config tunes the memory system.
type Config struct {
	RepeatTopicThreshold int
	OpinionAlpha         float64
	ContextRecords       int
}

// System holds per-agent memory. Each agent has its own lock; different agents
// never contend.
type System struct {
	profiles Profiles
	cfg      Config
	agents   *xsync.MapOf[string, *agentMemory]
	archive  Archive
	embedder Embedder
}

type agentMemory struct {
	mu          sync.RWMutex
	recent      *ring
	longTerm    []Record
	topicCounts map[string]int
	opinions    map[string]float64
	triggers    Triggers
}

// NewSystem creates a System. archive and embedder may be nil.
func NewSystem(profiles Profiles, cfg Config, archive Archive, embedder Embedder) *System {
	if cfg.RepeatTopicThreshold <= 0 {
		cfg.RepeatTopicThreshold = 3
	}
	if cfg.OpinionAlpha <= 0 || cfg.OpinionAlpha > 1 {
		cfg.OpinionAlpha = 0.3
	}
	if cfg.ContextRecords <= 0 {
		cfg.ContextRecords = defaultContextRecords
	}
	return &System{
		profiles: profiles,
		cfg:      cfg,
		agents:   xsync.NewMapOf[string, *agentMemory](),
		archive:  archive,
		embedder: embedder,
	}
}

func (s *System) agent(agentID string) *agentMemory {
	m, _ := s.agents.LoadOrCompute(agentID, func() *agentMemory {
		depth, triggers := s.settings(agentID)
		return &agentMemory{
			recent:      newRing(depth),
			topicCounts: make(map[string]int),
			opinions:    make(map[string]float64),
			triggers:    triggers,
		}
	})
	return m
}

func (s *System) settings(agentID string) (int, Triggers) {
	if s.profiles == nil {
		return defaultDepth, Triggers{}
	}
	p, err := s.profiles.Get(agentID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			slog.Warn("failed to load memory settings", "agent_id", agentID, "error", err.Error())
		}
		return defaultDepth, Triggers{}
	}
	var triggers Triggers
	for _, o := range p.Memory.StrongOpinions {
		triggers.StrongOpinions = append(triggers.StrongOpinions, o.Topic)
	}
	for _, j := range p.Memory.InsideJokes {
		triggers.InsideJokes = append(triggers.InsideJokes, j.Trigger)
	}
	depth := p.Memory.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	return depth, triggers
}

// Record stores an interaction in short-term memory and, when significant,
// appends it to the long-term log.
func (s *System) Record(ctx context.Context, agentID string, in Interaction) Record {
	m := s.agent(agentID)
	topics := normalizeTopics(in.Topics)
	in.Topics = topics

	m.mu.Lock()
	for _, t := range topics {
		m.topicCounts[t]++
		if prev, ok := m.opinions[t]; ok {
			m.opinions[t] = s.cfg.OpinionAlpha*in.Sentiment + (1-s.cfg.OpinionAlpha)*prev
		} else {
			m.opinions[t] = in.Sentiment
		}
	}
	reasons := significance(in, m.triggers, m.topicCounts, s.cfg.RepeatTopicThreshold)
	rec := Record{
		AgentID:         agentID,
		Timestamp:       in.Timestamp,
		SubjectPostID:   in.PostID,
		CommentID:       in.CommentID,
		InteractionType: in.Type,
		Topics:          topics,
		Participants:    append([]string(nil), in.Participants...),
		Summary:         truncate(in.Text, summaryRunes),
		Sentiment:       in.Sentiment,
		Significant:     len(reasons) > 0,
		Reasons:         reasons,
	}
	rec.Importance = ComputeImportance(in, rec.Significant)
	m.recent.push(rec)
	if rec.Significant {
		m.longTerm = append(m.longTerm, rec)
	}
	m.mu.Unlock()

	if rec.Significant {
		s.archiveRecord(ctx, rec)
	}
	return rec
}

func (s *System) archiveRecord(ctx context.Context, rec Record) {
	if s.archive == nil {
		return
	}
	var embedding []float32
	if s.embedder != nil {
		vec, err := s.embedder.EmbedDocument(ctx, rec.Summary)
		if err != nil {
			slog.Warn("failed to embed memory", "agent_id", rec.AgentID, "error", err.Error())
		} else {
			embedding = vec
		}
	}
	if err := s.archive.AddMemory(ctx, rec, embedding); err != nil {
		slog.Warn("failed to archive memory", "agent_id", rec.AgentID, "post_id", rec.SubjectPostID, "error", err.Error())
	}
}

// ContextFor returns the last short-term records, the long-term records for
// topic (all of them when topic is empty) and the opinion scores. Unknown
// agents yield an empty Context.
func (s *System) ContextFor(agentID, topic string) Context {
	out := Context{AgentID: agentID, Opinions: map[string]float64{}}
	m, ok := s.agents.Load(agentID)
	if !ok {
		return out
	}
	topic = strings.ToLower(strings.TrimSpace(topic))

	m.mu.RLock()
	defer m.mu.RUnlock()
	out.Recent = m.recent.last(s.cfg.ContextRecords)
	for _, rec := range m.longTerm {
		if topic == "" || containsTopic(rec.Topics, topic) {
			out.LongTerm = append(out.LongTerm, rec)
		}
	}
	for k, v := range m.opinions {
		out.Opinions[k] = v
	}
	return out
}

// ShortTermLen reports the number of short-term records held for agentID.
func (s *System) ShortTermLen(agentID string) int {
	m, ok := s.agents.Load(agentID)
	if !ok {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recent.len()
}

// Snapshot captures the full state for persistence between passes.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{Agents: make(map[string]AgentSnapshot)}
	s.agents.Range(func(id string, m *agentMemory) bool {
		m.mu.RLock()
		as := AgentSnapshot{
			Recent:      m.recent.last(0),
			LongTerm:    append([]Record(nil), m.longTerm...),
			TopicCounts: make(map[string]int, len(m.topicCounts)),
			Opinions:    make(map[string]float64, len(m.opinions)),
		}
		for k, v := range m.topicCounts {
			as.TopicCounts[k] = v
		}
		for k, v := range m.opinions {
			as.Opinions[k] = v
		}
		m.mu.RUnlock()
		snap.Agents[id] = as
		return true
	})
	return snap
}

// Restore loads a snapshot, trimming short-term history to each agent's depth.
func (s *System) Restore(snap Snapshot) {
	for id, as := range snap.Agents {
		m := s.agent(id)
		m.mu.Lock()
		m.recent = newRing(len(m.recent.buf))
		for _, rec := range as.Recent {
			m.recent.push(rec)
		}
		m.longTerm = append([]Record(nil), as.LongTerm...)
		m.topicCounts = make(map[string]int, len(as.TopicCounts))
		for k, v := range as.TopicCounts {
			m.topicCounts[k] = v
		}
		m.opinions = make(map[string]float64, len(as.Opinions))
		for k, v := range as.Opinions {
			m.opinions[k] = v
		}
		m.mu.Unlock()
	}
}

func normalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
