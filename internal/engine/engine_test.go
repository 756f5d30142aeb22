package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/agent-social/internal/config"
	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/moderation"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/prompt"
	"github.com/easeaico/agent-social/internal/relationship"
	"github.com/easeaico/agent-social/internal/types"
)

var t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

const profilesYAML = `
agents:
  - agent_id: tech_fan
    display_name: TechFan
    archetype: enthusiastic
    personality:
      energy_level: high
      formality: casual
      verbosity: moderate
      chaos_tolerance: medium
    expression:
      favorite_reactions:
        - reaction: felix.webp
          weight: 1
          contexts: [success]
    behavior:
      response_probability: 1.0
      thread_participation: 0.5
      peak_hours: [12]
    interests:
      trigger_keywords:
        strong: [scheduler]
  - agent_id: lurker
    display_name: Lurker
    archetype: analytical
    personality:
      energy_level: low
      formality: 0.8
      verbosity: concise
      chaos_tolerance: low
    behavior:
      response_probability: 0.0
  - agent_id: coin_flip
    display_name: CoinFlip
    archetype: supportive
    personality:
      energy_level: medium
      formality: medium
      verbosity: medium
      chaos_tolerance: medium
    behavior:
      response_probability: 0.5
  - agent_id: forgetful
    display_name: Forgetful
    archetype: enthusiastic
    personality:
      energy_level: high
      formality: casual
      verbosity: moderate
      chaos_tolerance: medium
    behavior:
      response_probability: 1.0
    memory:
      interaction_memory: false
`

type fakeStorage struct {
	mu         sync.Mutex
	agents     []string
	posts      []types.Post
	comments   map[int64][]types.Comment
	missing    map[int64]bool
	persistErr error
	persisted  []types.ResponseEnvelope
	nextID     int
}

func newFakeStorage(agents []string, posts ...types.Post) *fakeStorage {
	return &fakeStorage{
		agents:   agents,
		posts:    posts,
		comments: make(map[int64][]types.Comment),
		missing:  make(map[int64]bool),
	}
}

func (s *fakeStorage) FetchRecentPosts(_ context.Context, _ time.Time, _ time.Duration) ([]types.Post, error) {
	return s.posts, nil
}

func (s *fakeStorage) FetchThread(_ context.Context, postID int64) (types.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[postID] {
		return types.Thread{}, fmt.Errorf("post %d: %w", postID, types.ErrNotFound)
	}
	for _, p := range s.posts {
		if p.ID == postID {
			return types.Thread{Post: p, Comments: append([]types.Comment(nil), s.comments[postID]...)}, nil
		}
	}
	return types.Thread{}, fmt.Errorf("post %d: %w", postID, types.ErrNotFound)
}

func (s *fakeStorage) PersistComment(_ context.Context, env types.ResponseEnvelope) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return "", s.persistErr
	}
	s.nextID++
	id := fmt.Sprintf("c%d", s.nextID)
	s.persisted = append(s.persisted, env)
	s.comments[env.TargetPostID] = append(s.comments[env.TargetPostID], types.Comment{
		ID:              id,
		PostID:          env.TargetPostID,
		ParentCommentID: env.ParentCommentID,
		AgentID:         env.AgentID,
		Content:         env.Text,
		Rating:          env.Rating,
	})
	return id, nil
}

func (s *fakeStorage) ListActiveAgents(_ context.Context) ([]string, error) {
	return s.agents, nil
}

func (s *fakeStorage) persistedBy(agentID string) []types.ResponseEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.ResponseEnvelope
	for _, env := range s.persisted {
		if env.AgentID == agentID {
			out = append(out, env)
		}
	}
	return out
}

type fakeCompleter struct {
	mu    sync.Mutex
	text  string
	err   error
	block bool
	calls int
}

func (c *fakeCompleter) Complete(ctx context.Context, _ prompt.Prompt, _ string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.block {
		<-ctx.Done()
		return "", &types.ProviderError{Provider: "fake", Err: ctx.Err()}
	}
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func (c *fakeCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

const goodReply = "Great release, the new scheduler improvements look solid and well tested."

func makePosts(n int) []types.Post {
	out := make([]types.Post, n)
	for i := range out {
		out[i] = types.Post{
			ID:          int64(i + 1),
			AuthorID:    "news-bot",
			Title:       fmt.Sprintf("Release %d", i+1),
			Content:     "A new version of the scheduler shipped today.",
			PublishedAt: t0.Add(-time.Hour),
		}
	}
	return out
}

func moderationConfig() config.ModerationConfig {
	return config.ModerationConfig{
		MaxChaosThreshold:     75,
		RateLimitWindow:       time.Hour,
		RateLimitCount:        30,
		CooldownDuration:      30 * time.Minute,
		CooldownRecoveryScore: 50,
		DecayFactor:           0.9,
		DecayInterval:         time.Hour,
		Baseline:              20,
		RepetitionWindow:      10,
	}
}

func newTestEngine(t *testing.T, store Storage, completer Completer, cfg Config) *Engine {
	t.Helper()
	reg, err := personality.Load(personality.Source{Name: "agents.yaml", Data: []byte(profilesYAML)})
	require.NoError(t, err)
	mod, err := moderation.New(moderationConfig(), moderation.DefaultPatterns())
	require.NoError(t, err)
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	return New(cfg, Components{
		Storage:    store,
		Completer:  completer,
		Profiles:   reg,
		Memory:     memory.NewSystem(reg, memory.Config{}, nil, nil),
		Relations:  relationship.NewTracker(reg),
		Moderation: mod,
	})
}

func TestRunPassAlwaysRespondsAtFullProbability(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(3)...)
	completer := &fakeCompleter{text: goodReply}
	e := newTestEngine(t, store, completer, Config{Seed: 7})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, 3, report.Responded)
	assert.Len(t, report.CommentIDs, 3)
	assert.Equal(t, 3, completer.callCount())

	got := store.persistedBy("tech_fan")
	require.Len(t, got, 3)
	for _, env := range got {
		assert.Equal(t, goodReply, env.Text)
		assert.Empty(t, env.ParentCommentID)
		assert.NotEqual(t, types.RatingBlocked, env.Rating)
	}
	assert.Equal(t, 3, e.Memory.ShortTermLen("tech_fan"))
	_, ok := e.Relations.Get("tech_fan", "news-bot")
	assert.True(t, ok)
}

func TestRunPassZeroProbabilityHasNoSideEffects(t *testing.T) {
	store := newFakeStorage([]string{"lurker"}, makePosts(4)...)
	completer := &fakeCompleter{text: goodReply}
	e := newTestEngine(t, store, completer, Config{})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Evaluated)
	assert.Zero(t, report.Responded)
	assert.Zero(t, completer.callCount())
	assert.Zero(t, e.Memory.ShortTermLen("lurker"))
}

func TestRunPassCooldownStopsLaterReplies(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(2)...)
	completer := &fakeCompleter{text: goodReply}
	e := newTestEngine(t, store, completer, Config{})
	e.Moderation.Restore(moderation.Snapshot{
		GlobalLevel: 20,
		Agents:      []moderation.AgentSnapshot{{AgentID: "tech_fan", Chaos: 76, Quality: 50}},
	})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Responded)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, store.persisted, 1)
	assert.Equal(t, types.RatingFlagged, store.persisted[0].Rating)
	assert.True(t, e.Moderation.InCooldown("tech_fan", t0.Add(time.Minute)))

	calls := completer.callCount()
	report, err = e.RunPass(context.Background(), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Evaluated)
	assert.Equal(t, calls, completer.callCount())
}

func TestRunPassNeverPersistsBlockedReplies(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(1)...)
	completer := &fakeCompleter{text: "easy fix: rm -rf / and reboot"}
	e := newTestEngine(t, store, completer, Config{})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Blocked)
	assert.Zero(t, report.Responded)
	assert.Empty(t, store.persisted)
	assert.Zero(t, e.Memory.ShortTermLen("tech_fan"))
	_, _, tracked := e.Moderation.Scores("tech_fan")
	assert.False(t, tracked)
}

func TestRunPassPersistFailureLeavesStateUntouched(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(1)...)
	store.persistErr = errors.New("database is down")
	e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})

	_, err := e.RunPass(context.Background(), t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.persistErr)
	assert.Zero(t, e.Memory.ShortTermLen("tech_fan"))
	_, ok := e.Relations.Get("tech_fan", "news-bot")
	assert.False(t, ok)
}

func TestRunPassTreatsNotFoundAsNeutral(t *testing.T) {
	store := newFakeStorage([]string{"ghost", "tech_fan"}, makePosts(2)...)
	store.missing[2] = true
	e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Responded)
}

func TestRunPassSkipsOwnPosts(t *testing.T) {
	ps := makePosts(2)
	ps[0].AuthorID = "tech_fan"
	store := newFakeStorage([]string{"tech_fan"}, ps...)
	e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Responded)
}

func TestRunPassAbandonsProviderFailures(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(2)...)
	completer := &fakeCompleter{err: &types.ProviderError{Provider: "fake", Err: errors.New("quota exceeded")}}
	e := newTestEngine(t, store, completer, Config{})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Abandoned)
	assert.Empty(t, store.persisted)
}

func TestRunPassBudgetAbandonsSlowCandidates(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(3)...)
	e := newTestEngine(t, store, &fakeCompleter{block: true}, Config{PassBudget: 20 * time.Millisecond})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Abandoned)
	assert.Empty(t, store.persisted)
	assert.Zero(t, e.Memory.ShortTermLen("tech_fan"))
}

func TestRunPassIsDeterministicUnderSeed(t *testing.T) {
	run := func() []int64 {
		store := newFakeStorage([]string{"coin_flip", "tech_fan"}, makePosts(20)...)
		e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{Seed: 42, Workers: 2})
		_, err := e.RunPass(context.Background(), t0)
		require.NoError(t, err)
		var ids []int64
		for _, env := range store.persistedBy("coin_flip") {
			ids = append(ids, env.TargetPostID)
		}
		return ids
	}

	first := run()
	assert.NotEmpty(t, first)
	assert.Less(t, len(first), 20)
	assert.Equal(t, first, run())
}

func TestRunPassWithoutSeedDrawsFreshStreams(t *testing.T) {
	assert.Equal(t, int64(7), passSeed(7, t0))
	assert.NotEqual(t, passSeed(0, t0), passSeed(0, t0.Add(time.Hour)))

	responded := 0
	for i := range 40 {
		store := newFakeStorage([]string{"coin_flip"}, makePosts(1)...)
		e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})
		report, err := e.RunPass(context.Background(), t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		require.Equal(t, 1, report.Evaluated)
		responded += report.Responded
	}
	assert.Greater(t, responded, 5)
	assert.Less(t, responded, 35)
}

func TestRunPassSkipsMemoryWhenDisabled(t *testing.T) {
	store := newFakeStorage([]string{"forgetful"}, makePosts(2)...)
	e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})

	report, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Responded)
	assert.Zero(t, e.Memory.ShortTermLen("forgetful"))
	_, ok := e.Relations.Get("forgetful", "news-bot")
	assert.True(t, ok)
}

func TestSecondPassRepliesToNewComments(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(1)...)
	e := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})

	_, err := e.RunPass(context.Background(), t0)
	require.NoError(t, err)

	report, err := e.RunPass(context.Background(), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	store.comments[1] = append(store.comments[1], types.Comment{ID: "human-1", PostID: 1, AgentID: "coin_flip"})
	report, err = e.RunPass(context.Background(), t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, report.Responded)
	got := store.persistedBy("tech_fan")
	assert.Equal(t, "human-1", got[len(got)-1].ParentCommentID)
}

func TestResponseProbabilityFactors(t *testing.T) {
	e := newTestEngine(t, newFakeStorage(nil), &fakeCompleter{}, Config{})
	p, err := e.Profiles.Get("coin_flip")
	require.NoError(t, err)
	p.Behavior.ThreadParticipation = 0.5
	thread := types.Thread{Post: makePosts(1)[0]}

	assert.InDelta(t, 0.5, e.responseProbability(p, thread, t0), 1e-9)

	thread.Comments = []types.Comment{{ID: "a", AgentID: "coin_flip"}, {ID: "b", AgentID: "coin_flip"}}
	assert.InDelta(t, 0.125, e.responseProbability(p, thread, t0), 1e-9)

	p.Behavior.ResponseProbability = 1
	p.Interests.TriggerKeywords.Strong = []string{"scheduler"}
	thread.Comments = nil
	assert.Equal(t, 1.0, e.responseProbability(p, thread, t0))

	p.Behavior.ResponseProbability = 0.4
	p.Interests.TriggerKeywords = personality.TriggerKeywords{Avoid: []string{"release"}}
	assert.InDelta(t, 0.2, e.responseProbability(p, thread, t0), 1e-9)

	p.Relationships.ResponseModifiers = map[string]float64{"news-bot": 0.5, "someone-else": 3}
	assert.InDelta(t, 0.1, e.responseProbability(p, thread, t0), 1e-9)
}

func TestResponseProbabilityFollowsChaosAffinity(t *testing.T) {
	e := newTestEngine(t, newFakeStorage(nil), &fakeCompleter{}, Config{})
	p, err := e.Profiles.Get("coin_flip")
	require.NoError(t, err)
	thread := types.Thread{Post: types.Post{ID: 1, AuthorID: "news-bot", Title: "Prod outage", Content: "Everything is on fire."}}

	assert.InDelta(t, 0.5*0.7, e.responseProbability(p, thread, t0), 1e-9)

	p.Archetype = personality.Chaotic
	assert.InDelta(t, 0.5*1.5*1.15, e.responseProbability(p, thread, t0), 1e-9)

	thread.Post.Title, thread.Post.Content = "Weekly notes", "Nothing much happened."
	assert.InDelta(t, 0.5*1.15, e.responseProbability(p, thread, t0), 1e-9)
}

func TestPeakHourFactor(t *testing.T) {
	assert.Equal(t, 1.0, peakHourFactor(nil, 0, t0))
	assert.Equal(t, 1.3, peakHourFactor([]int{12}, 0, t0))
	assert.Equal(t, 1.3, peakHourFactor([]int{14}, 2, t0))
	assert.Equal(t, 1.1, peakHourFactor([]int{10, 20}, 0, t0))
	assert.Equal(t, 1.1, peakHourFactor([]int{23}, -12, t0.Add(13*time.Hour)))
	assert.Equal(t, 0.8, peakHourFactor([]int{3}, 0, t0))
}

func TestReplyTarget(t *testing.T) {
	thread := types.Thread{Comments: []types.Comment{
		{ID: "1", AgentID: "a"},
		{ID: "2", AgentID: "me"},
		{ID: "3", AgentID: "b"},
		{ID: "4", AgentID: "c"},
	}}
	parent, ok := replyTarget(thread, "me")
	assert.True(t, ok)
	assert.Equal(t, "4", parent)

	parent, ok = replyTarget(thread, "new")
	assert.True(t, ok)
	assert.Empty(t, parent)

	_, ok = replyTarget(thread, "c")
	assert.False(t, ok)
}

type memStateStore map[string][]byte

func (m memStateStore) SaveState(_ context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m[name] = raw
	return nil
}

func (m memStateStore) LoadState(_ context.Context, name string, v any) (bool, error) {
	raw, ok := m[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func TestStateSurvivesBetweenEngines(t *testing.T) {
	store := newFakeStorage([]string{"tech_fan"}, makePosts(2)...)
	first := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})
	_, err := first.RunPass(context.Background(), t0)
	require.NoError(t, err)

	states := memStateStore{}
	require.NoError(t, first.SaveState(context.Background(), states))
	assert.Len(t, states, 3)

	second := newTestEngine(t, store, &fakeCompleter{text: goodReply}, Config{})
	require.NoError(t, second.LoadState(context.Background(), states))

	wantChaos, wantQuality, _ := first.Moderation.Scores("tech_fan")
	gotChaos, gotQuality, ok := second.Moderation.Scores("tech_fan")
	require.True(t, ok)
	assert.InDelta(t, wantChaos, gotChaos, 1e-9)
	assert.InDelta(t, wantQuality, gotQuality, 1e-9)
	assert.Equal(t, 2, second.Memory.ShortTermLen("tech_fan"))
	want, _ := first.Relations.Get("tech_fan", "news-bot")
	got, ok := second.Relations.Get("news-bot", "tech_fan")
	require.True(t, ok)
	assert.Equal(t, want.InteractionCount, got.InteractionCount)

	empty := newTestEngine(t, store, &fakeCompleter{}, Config{})
	require.NoError(t, empty.LoadState(context.Background(), memStateStore{}))
	_, _, ok = empty.Moderation.Scores("tech_fan")
	assert.False(t, ok)
}
