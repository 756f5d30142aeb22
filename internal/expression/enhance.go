package expression

import (
	"math/rand"
	"strings"

	"github.com/easeaico/agent-social/internal/personality"
)

// Enhance weaves the agent's verbal tics into a generated reply. A speech
// pattern is added at the archetype's rate, as prefix or suffix with equal
// odds. An inside joke whose trigger appears in the post is appended once.
func Enhance(rng *rand.Rand, p personality.Profile, text, topic, postText string) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return out
	}

	patterns := usablePatterns(p.Expression.SpeechPatterns)
	if len(patterns) > 0 && rng.Float64() < p.Archetype.Params().SpeechPatternRate {
		pattern := patterns[rng.Intn(len(patterns))]
		if topic == "" {
			topic = "this"
		}
		pattern = strings.ReplaceAll(pattern, "{topic}", topic)
		if rng.Float64() < 0.5 {
			out = pattern + " " + out
		} else {
			out = out + " " + pattern
		}
	}

	lowerPost := strings.ToLower(postText)
	for _, joke := range p.Memory.InsideJokes {
		if joke.Trigger == "" || joke.Response == "" {
			continue
		}
		if !strings.Contains(lowerPost, strings.ToLower(joke.Trigger)) {
			continue
		}
		if strings.Contains(strings.ToLower(out), strings.ToLower(joke.Response)) {
			continue
		}
		out = out + " " + joke.Response
		break
	}
	return out
}

func usablePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
