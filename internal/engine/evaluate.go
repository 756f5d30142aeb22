package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/easeaico/agent-social/internal/emotion"
	"github.com/easeaico/agent-social/internal/expression"
	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/prompt"
	"github.com/easeaico/agent-social/internal/types"
)

const keywordLimit = 5

// candidate is a generated reply waiting for moderation and commit.
type candidate struct {
	post         types.Post
	parentID     string
	text         string
	topics       []string
	participants []string
	reaction     string
	meme         *types.MemeRef
}

type agentPlan struct {
	agentID    string
	remembers  bool
	candidates []candidate
	report     PassReport
}

func (e *Engine) evaluateAgent(ctx context.Context, agentID string, posts []types.Post, threads *threadCache, now time.Time) (agentPlan, error) {
	plan := agentPlan{agentID: agentID}

	profile, err := e.Profiles.Get(agentID)
	if err != nil {
		if !isNotFound(err) {
			return plan, fmt.Errorf("failed to load profile %s: %w", agentID, err)
		}
		slog.Warn("skipping agent without profile", "agent_id", agentID)
		plan.report.Skipped += len(posts)
		return plan, nil
	}
	if e.Moderation.InCooldown(agentID, now) {
		slog.Debug("agent in cooldown", "agent_id", agentID)
		plan.report.Skipped += len(posts)
		return plan, nil
	}

	plan.remembers = profile.Memory.Remembers()

	rng := agentRand(passSeed(e.cfg.Seed, now), agentID)
	for i, post := range posts {
		if ctx.Err() != nil {
			plan.report.Abandoned += len(posts) - i
			break
		}
		if post.AuthorID == agentID {
			plan.report.Skipped++
			continue
		}

		thread, err := threads.get(ctx, post)
		if err != nil {
			if ctx.Err() != nil {
				plan.report.Abandoned += len(posts) - i
				break
			}
			return plan, err
		}
		parentID, ok := replyTarget(thread, agentID)
		if !ok {
			plan.report.Skipped++
			continue
		}

		plan.report.Evaluated++
		prob := e.responseProbability(profile, thread, now)
		if rng.Float64() >= prob {
			continue
		}

		c, err := e.generate(ctx, rng, profile, thread)
		if err != nil {
			slog.Warn("abandoned candidate",
				"agent_id", agentID,
				"post_id", post.ID,
				"error", err.Error())
			plan.report.Abandoned++
			continue
		}
		c.parentID = parentID
		plan.candidates = append(plan.candidates, c)
	}
	return plan, nil
}

// replyTarget picks the comment to answer. Agents answer the post directly
// the first time, then only reply to the newest comment by someone else that
// came after their own last comment.
func replyTarget(thread types.Thread, agentID string) (string, bool) {
	own := -1
	for i, c := range thread.Comments {
		if c.AgentID == agentID {
			own = i
		}
	}
	if own < 0 {
		return "", true
	}
	for i := len(thread.Comments) - 1; i > own; i-- {
		if thread.Comments[i].AgentID != agentID {
			return thread.Comments[i].ID, true
		}
	}
	return "", false
}

func (e *Engine) generate(ctx context.Context, rng *rand.Rand, profile personality.Profile, thread types.Thread) (candidate, error) {
	post := thread.Post
	postText := post.Text()
	topics := emotion.Topics(postText, profile.Topics())
	topic := ""
	if len(topics) > 0 {
		topic = topics[0]
	}
	participants := otherParticipants(thread, profile.AgentID)

	relations := make([]prompt.Relation, 0, len(participants))
	for _, other := range participants {
		relations = append(relations, prompt.Relation{
			AgentID:  other,
			Affinity: e.Relations.Modifier(profile.AgentID, other),
			Style:    interactionStyle(profile, other),
		})
	}

	pr, err := e.Prompts.Build(prompt.BuildContext{
		Profile:       profile,
		Memory:        e.Memory.ContextFor(profile.AgentID, topic),
		Relationships: relations,
		Thread:        thread,
		Topic:         topic,
	})
	if err != nil {
		return candidate{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	raw, err := e.Completer.Complete(ctx, pr, profile.Model)
	if err != nil {
		return candidate{}, err
	}
	text := expression.Enhance(rng, profile, raw, topic, postText)

	tags := emotion.Tags(postText + "\n" + text)
	c := candidate{
		post:         post,
		text:         text,
		topics:       topics,
		participants: participants,
	}
	if name, ok := expression.Select(rng, expression.ReactionCandidates(profile), tags); ok {
		c.reaction = name
		if e.Reactions.Known(name) {
			c.reaction = e.Reactions.URL(name)
		}
	}
	if ref, ok := e.Memes.MaybeGenerate(rng, profile, expression.MemeContext{
		Topic:    topic,
		Keywords: emotion.Keywords(postText, keywordLimit),
		Tags:     tags,
	}); ok {
		c.meme = ref
		slog.Debug("generated meme", "agent_id", profile.AgentID, "meme", e.Memes.Markdown(ref))
	}
	return c, nil
}

// responseProbability combines the profile's base rate with interest, time of
// day, relationships, the per-author modifier and prior participation,
// clamped to [0,1].
func (e *Engine) responseProbability(p personality.Profile, thread types.Thread, now time.Time) float64 {
	prob := p.Behavior.ResponseProbability
	prob *= interestFactor(p, thread.Post.Text())
	prob *= peakHourFactor(p.Behavior.PeakHours, p.Behavior.TimezoneOffset, now)

	if others := otherParticipants(thread, p.AgentID); len(others) > 0 {
		var sum float64
		for _, other := range others {
			sum += e.Relations.Modifier(p.AgentID, other)
		}
		prob *= clamp(1+sum/float64(len(others)), 0, 2)
	}
	if m, ok := p.Relationships.ResponseModifiers[thread.Post.AuthorID]; ok {
		prob *= m
	}

	for range thread.CountBy(p.AgentID) {
		prob *= p.Behavior.ThreadParticipation
	}
	prob *= p.Archetype.Params().ResponseBias
	return clamp(prob, 0, 1)
}

func interestFactor(p personality.Profile, text string) float64 {
	lowered := strings.ToLower(text)
	factor := 1.0
	weights := p.Topics()
	for _, topic := range slices.Sorted(maps.Keys(weights)) {
		if topic != "" && strings.Contains(lowered, topic) {
			factor *= 1 + weights[topic]*0.5
		}
	}
	kw := p.Interests.TriggerKeywords
	if containsAny(lowered, kw.Strong) {
		factor *= 1.5
	}
	if containsAny(lowered, kw.Moderate) {
		factor *= 1.2
	}
	if containsAny(lowered, kw.Avoid) {
		factor *= 0.5
	}
	if emotion.Chaotic(emotion.Tags(text)) {
		factor *= p.Archetype.Params().ChaosAffinity
	}
	return factor
}

// peakHourFactor boosts peak hours and their surroundings. Profiles without
// peak hours are neutral.
func peakHourFactor(peaks []int, offsetHours int, now time.Time) float64 {
	if len(peaks) == 0 {
		return 1
	}
	hour := now.UTC().Add(time.Duration(offsetHours) * time.Hour).Hour()
	for _, h := range peaks {
		if h == hour {
			return 1.3
		}
	}
	d := hour - peaks[0]
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	if d <= 2 {
		return 1.1
	}
	return 0.8
}

// otherParticipants lists the post author and commenters other than agentID,
// in first-appearance order.
func otherParticipants(thread types.Thread, agentID string) []string {
	seen := map[string]struct{}{agentID: {}, "": {}}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(thread.Post.AuthorID)
	for _, id := range thread.Participants() {
		add(id)
	}
	return out
}

func interactionStyle(p personality.Profile, other string) string {
	for _, rel := range p.Relationships.Allies {
		if rel.AgentID == other {
			return rel.InteractionStyle
		}
	}
	for _, rel := range p.Relationships.Rivals {
		if rel.AgentID == other {
			return rel.InteractionStyle
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v != v:
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// interactionFor turns a committed reply into a memory interaction.
func interactionFor(c candidate, commentID, text string, sentiment float64, now time.Time) memory.Interaction {
	kind := memory.InteractionComment
	if c.parentID != "" {
		kind = memory.InteractionReply
	}
	reactions := 0
	if c.reaction != "" {
		reactions++
	}
	return memory.Interaction{
		PostID:       c.post.ID,
		CommentID:    commentID,
		Type:         kind,
		Text:         text,
		Topics:       c.topics,
		Participants: c.participants,
		Sentiment:    sentiment,
		Reactions:    reactions,
		Timestamp:    now,
	}
}
