package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/agent-social/internal/types"
)

type agentModel struct {
	ID        string `gorm:"primaryKey"`
	Active    bool   `gorm:"index"`
	CreatedAt time.Time
}

func (agentModel) TableName() string {
	return "agents"
}

type postModel struct {
	ID          int64 `gorm:"primaryKey"`
	AuthorID    string
	Source      string
	Title       string
	Content     string
	URL         string
	PublishedAt time.Time `gorm:"index"`
}

func (postModel) TableName() string {
	return "posts"
}

// commentModel is unique per (agent, post, parent) so a re-run pass cannot
// post the same reply twice.
type commentModel struct {
	ID              string `gorm:"primaryKey"`
	AgentID         string `gorm:"uniqueIndex:idx_comment_reply"`
	PostID          int64  `gorm:"uniqueIndex:idx_comment_reply;index"`
	ParentCommentID string `gorm:"uniqueIndex:idx_comment_reply"`
	Content         string
	ReactionRef     string
	MemeRef         *types.MemeRef `gorm:"serializer:json"`
	Rating          string
	CreatedAt       time.Time
}

func (commentModel) TableName() string {
	return "comments"
}

// RegisterAgents creates active rows for agents not seen before. Agents that
// were deactivated stay inactive.
func (s *Store) RegisterAgents(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([]agentModel, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, agentModel{ID: id, Active: true})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to register agents: %w", err)
	}
	return nil
}

// ListActiveAgents returns active agent ids in id order.
func (s *Store) ListActiveAgents(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&agentModel{}).
		Where("active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list active agents: %w", err)
	}
	return ids, nil
}

// FetchRecentPosts returns posts published in the maxAge window ending at
// now, oldest first.
func (s *Store) FetchRecentPosts(ctx context.Context, now time.Time, maxAge time.Duration) ([]types.Post, error) {
	var records []postModel
	if err := s.db.WithContext(ctx).
		Where("published_at >= ? AND published_at <= ?", now.Add(-maxAge), now).
		Order("published_at ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	posts := make([]types.Post, 0, len(records))
	for _, r := range records {
		posts = append(posts, postFromModel(r))
	}
	return posts, nil
}

// FetchThread returns a post and its comments, oldest first. An unknown post
// yields types.ErrNotFound.
func (s *Store) FetchThread(ctx context.Context, postID int64) (types.Thread, error) {
	var post postModel
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Thread{}, fmt.Errorf("post %d: %w", postID, types.ErrNotFound)
		}
		return types.Thread{}, fmt.Errorf("failed to get post: %w", err)
	}

	var records []commentModel
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return types.Thread{}, fmt.Errorf("failed to query comments: %w", err)
	}

	thread := types.Thread{Post: postFromModel(post), Comments: make([]types.Comment, 0, len(records))}
	for _, r := range records {
		thread.Comments = append(thread.Comments, commentFromModel(r))
	}
	return thread, nil
}

// PersistComment stores env and returns the comment id. Persisting the same
// reply again returns the id of the existing row.
func (s *Store) PersistComment(ctx context.Context, env types.ResponseEnvelope) (string, error) {
	record := commentModel{
		ID:              uuid.NewString(),
		AgentID:         env.AgentID,
		PostID:          env.TargetPostID,
		ParentCommentID: env.ParentCommentID,
		Content:         env.Text,
		ReactionRef:     env.ReactionRef,
		MemeRef:         env.MemeRef,
		Rating:          string(env.Rating),
		CreatedAt:       s.now(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return "", fmt.Errorf("failed to insert comment: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return record.ID, nil
	}

	var existing commentModel
	if err := s.db.WithContext(ctx).
		Where("agent_id = ? AND post_id = ? AND parent_comment_id = ?", env.AgentID, env.TargetPostID, env.ParentCommentID).
		First(&existing).Error; err != nil {
		return "", fmt.Errorf("failed to load existing comment: %w", err)
	}
	return existing.ID, nil
}

func postFromModel(m postModel) types.Post {
	return types.Post{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		Source:      m.Source,
		Title:       m.Title,
		Content:     m.Content,
		URL:         m.URL,
		PublishedAt: m.PublishedAt,
	}
}

func commentFromModel(m commentModel) types.Comment {
	return types.Comment{
		ID:              m.ID,
		PostID:          m.PostID,
		ParentCommentID: m.ParentCommentID,
		AgentID:         m.AgentID,
		Content:         m.Content,
		ReactionRef:     m.ReactionRef,
		MemeRef:         m.MemeRef,
		Rating:          types.Rating(m.Rating),
		CreatedAt:       m.CreatedAt,
	}
}
