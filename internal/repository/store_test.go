package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/agent-social/internal/config"
	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/types"
)

var t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "agentsocial.db")})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	s.now = func() time.Time { return t0 }
	require.NoError(t, s.AutoMigrate(ctx))
	return s
}

func addPost(t *testing.T, s *Store, id int64, published time.Time) {
	t.Helper()
	require.NoError(t, s.db.Create(&postModel{
		ID:          id,
		AuthorID:    "news-bot",
		Title:       "Go 1.26 released",
		Content:     "Release notes for the new Go version",
		PublishedAt: published,
	}).Error)
}

func TestListActiveAgents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterAgents(ctx, []string{"tech_enthusiast", "chaos_agent"}))
	require.NoError(t, s.db.Model(&agentModel{}).Where("id = ?", "chaos_agent").Update("active", false).Error)
	require.NoError(t, s.RegisterAgents(ctx, []string{"analyst"}))

	ids, err := s.ListActiveAgents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"analyst", "tech_enthusiast"}, ids)

	require.NoError(t, s.RegisterAgents(ctx, []string{"chaos_agent", "analyst"}))
	ids, err = s.ListActiveAgents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"analyst", "tech_enthusiast"}, ids)
}

func TestFetchRecentPostsHonorsMaxAge(t *testing.T) {
	s := openTestStore(t)
	addPost(t, s, 1, t0.Add(-48*time.Hour))
	addPost(t, s, 2, t0.Add(-2*time.Hour))
	addPost(t, s, 3, t0.Add(-time.Hour))

	posts, err := s.FetchRecentPosts(context.Background(), t0, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(2), posts[0].ID)
	assert.Equal(t, int64(3), posts[1].ID)
	assert.Equal(t, "Go 1.26 released", posts[0].Title)
}

func TestFetchRecentPostsUsesPassTime(t *testing.T) {
	s := openTestStore(t)
	addPost(t, s, 1, t0.Add(-48*time.Hour))
	addPost(t, s, 2, t0.Add(-time.Hour))

	posts, err := s.FetchRecentPosts(context.Background(), t0.Add(-24*time.Hour), 48*time.Hour)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].ID)
}

func TestFetchThreadUnknownPost(t *testing.T) {
	s := openTestStore(t)
	_, err := s.FetchThread(context.Background(), 99)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestPersistCommentRoundTripsRefs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addPost(t, s, 1, t0)

	meme := &types.MemeRef{Template: "drake", Slots: map[string]string{"top": "reading docs", "bottom": "guessing"}}
	id, err := s.PersistComment(ctx, types.ResponseEnvelope{
		AgentID:      "tech_enthusiast",
		TargetPostID: 1,
		Text:         "This release is huge!",
		ReactionRef:  "excited.webp",
		MemeRef:      meme,
		Rating:       types.RatingSafe,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	thread, err := s.FetchThread(ctx, 1)
	require.NoError(t, err)
	require.Len(t, thread.Comments, 1)
	c := thread.Comments[0]
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "excited.webp", c.ReactionRef)
	assert.Equal(t, types.RatingSafe, c.Rating)
	require.NotNil(t, c.MemeRef)
	assert.Equal(t, *meme, *c.MemeRef)
}

func TestPersistCommentIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addPost(t, s, 1, t0)

	env := types.ResponseEnvelope{AgentID: "analyst", TargetPostID: 1, Text: "first", Rating: types.RatingSafe}
	first, err := s.PersistComment(ctx, env)
	require.NoError(t, err)

	env.Text = "second"
	second, err := s.PersistComment(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	env.ParentCommentID = first
	reply, err := s.PersistComment(ctx, env)
	require.NoError(t, err)
	assert.NotEqual(t, first, reply)

	thread, err := s.FetchThread(ctx, 1)
	require.NoError(t, err)
	require.Len(t, thread.Comments, 2)
	assert.Nil(t, thread.Comments[0].MemeRef)
}

func TestAddMemoryAndRecentMemories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, summary := range []string{"first", "second", "third"} {
		require.NoError(t, s.AddMemory(ctx, memory.Record{
			AgentID:         "analyst",
			Timestamp:       t0.Add(time.Duration(i) * time.Minute),
			SubjectPostID:   1,
			InteractionType: memory.InteractionComment,
			Topics:          []string{"go"},
			Summary:         summary,
			Importance:      0.7,
			Reasons:         []string{"strong_opinion"},
		}, []float32{0.1, 0.2, 0.3}))
	}

	recs, err := s.RecentMemories(ctx, "analyst", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0].Summary)
	assert.Equal(t, "third", recs[1].Summary)
	assert.Equal(t, []string{"go"}, recs[1].Topics)
	assert.True(t, recs[1].Significant)

	var stored memoryModel
	require.NoError(t, s.db.Where("summary = ?", "first").First(&stored).Error)
	require.NotNil(t, stored.Embedding)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, stored.Embedding.Slice())
}

func TestSaveAndLoadState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	type doc struct {
		Level float64 `json:"level"`
	}
	var got doc
	ok, err := s.LoadState(ctx, "moderation", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveState(ctx, "moderation", doc{Level: 42}))
	require.NoError(t, s.SaveState(ctx, "moderation", doc{Level: 61.4}))

	ok, err = s.LoadState(ctx, "moderation", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 61.4, got.Level)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}
