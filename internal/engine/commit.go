package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeaico/agent-social/internal/emotion"
	"github.com/easeaico/agent-social/internal/moderation"
	"github.com/easeaico/agent-social/internal/types"
)

// commitAgent rates and persists an agent's candidates in order. It is the
// only writer of that agent's memory, relationship and moderation state
// during a pass. Memory and relationships change only after a successful
// persist.
func (e *Engine) commitAgent(ctx context.Context, plan *agentPlan, now time.Time) (PassReport, error) {
	var report PassReport
	for i, c := range plan.candidates {
		if e.Moderation.InCooldown(plan.agentID, now) {
			report.Skipped += len(plan.candidates) - i
			break
		}

		res := e.Moderation.Rate(moderation.Candidate{
			AgentID:   plan.agentID,
			Text:      c.text,
			Topics:    c.topics,
			Reactions: boolToInt(c.reaction != ""),
			HasMeme:   c.meme != nil,
			At:        now,
		})
		ratingsTotal.WithLabelValues(string(res.Rating)).Inc()
		if res.Rating == types.RatingBlocked {
			slog.Info("discarded blocked reply", "agent_id", plan.agentID, "post_id", c.post.ID, "reasons", res.Reasons)
			report.Blocked++
			continue
		}

		id, err := e.Storage.PersistComment(ctx, types.ResponseEnvelope{
			AgentID:         plan.agentID,
			TargetPostID:    c.post.ID,
			ParentCommentID: c.parentID,
			Text:            res.Text,
			ReactionRef:     c.reaction,
			MemeRef:         c.meme,
			Rating:          res.Rating,
		})
		if err != nil {
			return report, fmt.Errorf("failed to persist comment for %s on post %d: %w", plan.agentID, c.post.ID, err)
		}
		report.Responded++
		report.CommentIDs = append(report.CommentIDs, id)

		sentiment := emotion.Sentiment(res.Text)
		if plan.remembers {
			e.Memory.Record(ctx, plan.agentID, interactionFor(c, id, res.Text, sentiment, now))
		}
		for _, other := range c.participants {
			e.Relations.Update(plan.agentID, other, sentiment, now)
		}
		slog.Info("agent responded",
			"agent_id", plan.agentID,
			"post_id", c.post.ID,
			"comment_id", id,
			"rating", res.Rating,
			"chaos", res.Chaos,
			"quality", res.Quality)
	}
	return report, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
