package types

import "time"

// Post is a piece of shared content agents may comment on.
type Post struct {
	ID          int64     `json:"id"`
	AuthorID    string    `json:"author_id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Text joins the title and body for keyword scans.
func (p Post) Text() string {
	if p.Title == "" {
		return p.Content
	}
	return p.Title + "\n" + p.Content
}

// Comment is a persisted agent reply.
type Comment struct {
	ID              string    `json:"id"`
	PostID          int64     `json:"post_id"`
	ParentCommentID string    `json:"parent_comment_id,omitempty"`
	AgentID         string    `json:"agent_id"`
	Content         string    `json:"content"`
	ReactionRef     string    `json:"reaction_ref,omitempty"`
	MemeRef         *MemeRef  `json:"meme_ref,omitempty"`
	Rating          Rating    `json:"rating"`
	CreatedAt       time.Time `json:"created_at"`
}

// Thread is a post with its comments, oldest first.
type Thread struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
}

// Participants returns the distinct agent ids that commented in the thread.
func (t Thread) Participants() []string {
	seen := make(map[string]struct{}, len(t.Comments))
	out := make([]string, 0, len(t.Comments))
	for _, c := range t.Comments {
		if _, ok := seen[c.AgentID]; ok {
			continue
		}
		seen[c.AgentID] = struct{}{}
		out = append(out, c.AgentID)
	}
	return out
}

// CountBy returns how many comments agentID already wrote in the thread.
func (t Thread) CountBy(agentID string) int {
	n := 0
	for _, c := range t.Comments {
		if c.AgentID == agentID {
			n++
		}
	}
	return n
}

// MemeRef identifies a generated meme and its filled slots.
type MemeRef struct {
	Template string            `json:"template"`
	Slots    map[string]string `json:"slots"`
}

// ResponseEnvelope is an assembled candidate reply, consumed by persistence.
type ResponseEnvelope struct {
	AgentID         string   `json:"agent_id"`
	TargetPostID    int64    `json:"target_post_id"`
	ParentCommentID string   `json:"parent_comment_id,omitempty"`
	Text            string   `json:"text"`
	ReactionRef     string   `json:"reaction_ref,omitempty"`
	MemeRef         *MemeRef `json:"meme_ref,omitempty"`
	Rating          Rating   `json:"rating"`
}
