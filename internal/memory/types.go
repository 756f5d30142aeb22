// Package memory keeps per-agent short-term and long-term interaction history
// and running topic opinions.
package memory

import "time"

// Interaction types recorded by the engine.
const (
	InteractionComment = "comment"
	InteractionReply   = "reply"
)

// Interaction is the raw event handed to Record.
type Interaction struct {
	PostID       int64
	CommentID    string
	Type         string
	Text         string
	Topics       []string
	Participants []string
	Sentiment    float64
	Reactions    int
	Timestamp    time.Time
}

// Record is one remembered interaction.
type Record struct {
	AgentID         string    `json:"agent_id"`
	Timestamp       time.Time `json:"timestamp"`
	SubjectPostID   int64     `json:"subject_post_id"`
	CommentID       string    `json:"comment_id,omitempty"`
	InteractionType string    `json:"interaction_type"`
	Topics          []string  `json:"topics"`
	Participants    []string  `json:"participants,omitempty"`
	Summary         string    `json:"summary"`
	Sentiment       float64   `json:"sentiment"`
	// Importance is a 0-1 score used to rank long-term recall.
	Importance  float64  `json:"importance"`
	Significant bool     `json:"significant"`
	Reasons     []string `json:"reasons,omitempty"`
}

// Context is what the engine feeds into prompt assembly.
type Context struct {
	AgentID  string
	Recent   []Record
	LongTerm []Record
	Opinions map[string]float64
}

// Empty reports whether the context carries no history at all.
func (c Context) Empty() bool {
	return len(c.Recent) == 0 && len(c.LongTerm) == 0 && len(c.Opinions) == 0
}

// Sentiments returns the sentiment of each recent record, oldest first.
func (c Context) Sentiments() []float64 {
	out := make([]float64, len(c.Recent))
	for i, r := range c.Recent {
		out[i] = r.Sentiment
	}
	return out
}

// AgentSnapshot is the serializable state of one agent's memory.
type AgentSnapshot struct {
	Recent      []Record           `json:"recent"`
	LongTerm    []Record           `json:"long_term"`
	TopicCounts map[string]int     `json:"topic_counts"`
	Opinions    map[string]float64 `json:"opinions"`
}

// Snapshot is the serializable state of the whole memory system.
type Snapshot struct {
	Agents map[string]AgentSnapshot `json:"agents"`
}
