package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/easeaico/agent-social/internal/memory"
)

// memoryModel maps to the agent_memories table.
type memoryModel struct {
	ID              int
	AgentID         string `gorm:"index"`
	PostID          int64
	CommentID       string
	InteractionType string
	Summary         string
	Topics          []string `gorm:"serializer:json"`
	Participants    []string `gorm:"serializer:json"`
	Reasons         []string `gorm:"serializer:json"`
	Sentiment       float64
	// Importance is a 0-1 score, used in ranking.
	Importance float64 `gorm:"column:importance_score"`
	// Embedding is nil when no embedder is configured.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
}

func (memoryModel) TableName() string {
	return "agent_memories"
}

// AddMemory archives a significant memory record.
func (s *Store) AddMemory(ctx context.Context, rec memory.Record, embedding []float32) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := memoryModel{
		AgentID:         rec.AgentID,
		PostID:          rec.SubjectPostID,
		CommentID:       rec.CommentID,
		InteractionType: rec.InteractionType,
		Summary:         rec.Summary,
		Topics:          rec.Topics,
		Participants:    rec.Participants,
		Reasons:         rec.Reasons,
		Sentiment:       rec.Sentiment,
		Importance:      rec.Importance,
		Embedding:       vector,
		CreatedAt:       rec.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// RecentMemories returns the agent's newest archived memories, oldest first.
func (s *Store) RecentMemories(ctx context.Context, agentID string, limit int) ([]memory.Record, error) {
	var records []memoryModel
	if err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}

	results := make([]memory.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		results = append(results, memoryFromModel(records[i]))
	}
	return results, nil
}

func memoryFromModel(m memoryModel) memory.Record {
	return memory.Record{
		AgentID:         m.AgentID,
		Timestamp:       m.CreatedAt,
		SubjectPostID:   m.PostID,
		CommentID:       m.CommentID,
		InteractionType: m.InteractionType,
		Topics:          m.Topics,
		Participants:    m.Participants,
		Summary:         m.Summary,
		Sentiment:       m.Sentiment,
		Importance:      m.Importance,
		Significant:     true,
		Reasons:         m.Reasons,
	}
}
