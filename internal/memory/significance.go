package memory

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Reasons a record is kept in long-term memory.
const (
	ReasonStrongOpinion = "strong_opinion"
	ReasonRepeatTopic   = "repeat_topic"
	ReasonInsideJoke    = "inside_joke"
)

// Triggers are the per-agent phrases that make an interaction significant.
type Triggers struct {
	StrongOpinions []string
	InsideJokes    []string
}

// significance evaluates the long-term predicate. topicCounts must already
// include this interaction.
func significance(in Interaction, triggers Triggers, topicCounts map[string]int, threshold int) []string {
	var reasons []string
	text := strings.ToLower(in.Text)

	for _, topic := range triggers.StrongOpinions {
		t := strings.ToLower(topic)
		if t == "" {
			continue
		}
		if containsTopic(in.Topics, t) || strings.Contains(text, t) {
			reasons = append(reasons, ReasonStrongOpinion+":"+t)
			break
		}
	}

	for _, topic := range in.Topics {
		// Fires once, on the observation that first exceeds the threshold.
		if topicCounts[topic] == threshold+1 {
			reasons = append(reasons, ReasonRepeatTopic+":"+topic)
		}
	}

	for _, trigger := range triggers.InsideJokes {
		t := strings.ToLower(strings.TrimSpace(trigger))
		if t != "" && strings.Contains(text, t) {
			reasons = append(reasons, ReasonInsideJoke)
			break
		}
	}
	return reasons
}

// ComputeImportance scores an interaction in [0,1] from its emotional weight,
// length and reactions.
func ComputeImportance(in Interaction, significant bool) float64 {
	score := 0.5
	score += math.Abs(in.Sentiment) * 0.2
	if utf8.RuneCountInString(in.Text) > 200 {
		score += 0.1
	}
	if in.Reactions > 1 {
		score += 0.1
	}
	if significant {
		score += 0.1
	}
	return clampScore(score)
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}
