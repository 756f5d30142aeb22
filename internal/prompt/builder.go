// Package prompt assembles completion prompts from an agent's persona, its
// memory and the thread being answered.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/easeaico/agent-social/internal/emotion"
	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/types"
)

// Prompt is a system instruction plus the user turn.
type Prompt struct {
	System string
	User   string
}

// Relation describes another thread participant from the agent's side.
type Relation struct {
	AgentID  string
	Affinity float64
	Style    string
}

// BuildContext contains all inputs for prompt assembly.
type BuildContext struct {
	Profile       personality.Profile
	Memory        memory.Context
	Relationships []Relation
	Thread        types.Thread
	Topic         string
}

// Builder assembles layered prompts for a reply.
type Builder struct {
	commentLimit int
	nowFunc      func() time.Time
}

// NewBuilder creates a prompt Builder that includes at most commentLimit of
// the latest thread comments.
func NewBuilder(commentLimit int) *Builder {
	if commentLimit <= 0 {
		commentLimit = 10
	}
	return &Builder{
		commentLimit: commentLimit,
		nowFunc:      time.Now,
	}
}

// Build assembles the full prompt.
func (b *Builder) Build(ctx BuildContext) (Prompt, error) {
	system, err := BuildPersonaInstruction(ctx.Profile)
	if err != nil {
		return Prompt{}, err
	}

	comments := ctx.Thread.Comments
	if len(comments) > b.commentLimit {
		comments = comments[len(comments)-b.commentLimit:]
	}
	shown := make([]types.Comment, len(comments))
	for i, c := range comments {
		c.Content = truncate(c.Content, 400)
		shown[i] = c
	}

	relations := make([]relationLine, 0, len(ctx.Relationships))
	for _, r := range ctx.Relationships {
		relations = append(relations, relationLine{
			AgentID:  r.AgentID,
			Affinity: r.Affinity,
			Level:    emotion.RelationshipLevel(r.Affinity),
			Style:    r.Style,
		})
	}

	post := ctx.Thread.Post
	post.Content = truncate(post.Content, 2000)

	data := struct {
		Now           string
		Mood          string
		Memory        memory.Context
		Opinions      []string
		Relationships []relationLine
		Post          types.Post
		Comments      []types.Comment
		Topic         string
		Length        string
	}{
		Now:           b.nowFunc().Format(time.RFC3339),
		Mood:          emotion.Mood(ctx.Memory.Sentiments()),
		Memory:        ctx.Memory,
		Opinions:      opinionLines(ctx.Memory.Opinions),
		Relationships: relations,
		Post:          post,
		Comments:      shown,
		Topic:         ctx.Topic,
		Length:        lengthHint(ctx.Profile.Traits.Verbosity.Value),
	}

	var buf bytes.Buffer
	if err := replyTemplate.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to build prompt: %w", err)
	}
	return Prompt{System: system, User: buf.String()}, nil
}

type relationLine struct {
	AgentID  string
	Affinity float64
	Level    string
	Style    string
}

func opinionLines(opinions map[string]float64) []string {
	topics := make([]string, 0, len(opinions))
	for t := range opinions {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		out = append(out, fmt.Sprintf("%s: %s", t, stance(opinions[t])))
	}
	return out
}

func stance(v float64) string {
	switch emotion.Label(v) {
	case emotion.EmotionPositive:
		return "you like it"
	case emotion.EmotionNegative:
		return "you are skeptical"
	default:
		return "undecided"
	}
}
