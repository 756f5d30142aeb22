package moderation

import (
	"math"
	"strings"
	"unicode"
)

const (
	neutralScore = 50.0

	qualityPatternBonus = 15.0
	codeBonus           = 20.0
	onTopicBonus        = 10.0
	lowEffortPenalty    = 30.0
	repetitionPenalty   = 40.0

	chaosPatternWeight = 20.0
	capsRatioTrigger   = 0.3
	markerWeight       = 10.0
	markerCap          = 20.0
)

var (
	emoticons = []string{":)", ":(", ":D", "xD", ":P", ";)", "o_O", "^_^"}
	lowEffort = []string{"lol", "lmao", "k", "ok", "nice", "cool"}
	codeHints = []string{"```", "def ", "function ", "class ", "func "}
)

// contentChaos scores how disorderly a single reply is, in [0,100].
func contentChaos(r *rules, text string, reactions int, meme bool) float64 {
	score := float64(countMatches(r.chaos, text)) * chaosPatternWeight

	if ratio := capsRatio(text); ratio > capsRatioTrigger {
		score += ratio * 30
	}

	if punct := strings.Count(text, "!") + strings.Count(text, "?"); punct > 5 {
		score += math.Min(float64(punct)*5, 30)
	}

	emotes := 0
	for _, e := range emoticons {
		emotes += strings.Count(text, e)
	}
	if emotes > 3 {
		score += math.Min(float64(emotes)*5, 20)
	}

	markers := reactions
	if meme {
		markers++
	}
	score += math.Min(float64(markers)*markerWeight, markerCap)

	return clampScore(score)
}

// contentQuality scores the substance of a reply against the agent's recent
// outputs, in [0,100].
func contentQuality(r *rules, text string, topics []string, recent []string) float64 {
	score := neutralScore
	score += float64(countMatches(r.quality, text)) * qualityPatternBonus

	words := len(strings.Fields(text))
	switch {
	case words > 10 && words < 100:
		score += 10
	case words > 200:
		score += 5
	case words < 5:
		score -= 20
	}

	lower := strings.ToLower(text)
	for _, h := range codeHints {
		if strings.Contains(lower, h) {
			score += codeBonus
			break
		}
	}

	for _, t := range topics {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			score += onTopicBonus
			break
		}
	}

	trimmed := strings.TrimSpace(lower)
	for _, l := range lowEffort {
		if trimmed == l {
			score -= lowEffortPenalty
			break
		}
	}

	score -= repetition(text, recent) * repetitionPenalty
	return clampScore(score)
}

func capsRatio(text string) float64 {
	if text == "" {
		return 0
	}
	var upper, total int
	for _, c := range text {
		total++
		if unicode.IsUpper(c) {
			upper++
		}
	}
	return float64(upper) / float64(total)
}

// repetition is the highest word-trigram Jaccard similarity between text and
// any of recent.
func repetition(text string, recent []string) float64 {
	if len(recent) == 0 {
		return 0
	}
	grams := trigrams(text)
	if len(grams) == 0 {
		return 0
	}
	var best float64
	for _, prev := range recent {
		if j := jaccard(grams, trigrams(prev)); j > best {
			best = j
		}
	}
	return best
}

func trigrams(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{})
	if len(words) < 3 {
		if len(words) > 0 {
			out[strings.Join(words, " ")] = struct{}{}
		}
		return out
	}
	for i := 0; i+3 <= len(words); i++ {
		out[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
