// Package emotion derives sentiment, mood and context tags from plain text.
package emotion

// EmotionLabel is a sentiment label.
type EmotionLabel string

const (
	EmotionPositive EmotionLabel = "Positive"
	EmotionNegative EmotionLabel = "Negative"
	EmotionNeutral  EmotionLabel = "Neutral"
)

// labelThreshold separates neutral chatter from a real signal.
const labelThreshold = 0.2

// Label buckets a sentiment score in [-1,1].
func Label(score float64) EmotionLabel {
	switch {
	case score > labelThreshold:
		return EmotionPositive
	case score < -labelThreshold:
		return EmotionNegative
	default:
		return EmotionNeutral
	}
}

// ClampSentiment bounds score to [-1,1].
func ClampSentiment(score float64) float64 {
	switch {
	case score < -1:
		return -1
	case score > 1:
		return 1
	default:
		return score
	}
}

// Mood summarizes recent sentiment for prompt assembly.
func Mood(recent []float64) string {
	if len(recent) == 0 {
		return "Neutral"
	}
	var sum float64
	negatives := 0
	for _, s := range recent {
		sum += s
		if Label(s) == EmotionNegative {
			negatives++
		}
	}
	avg := sum / float64(len(recent))
	switch Label(avg) {
	case EmotionPositive:
		return "Happy"
	case EmotionNegative:
		if negatives*2 > len(recent) && avg < -0.5 {
			return "Angry"
		}
		return "Grumpy"
	default:
		return "Neutral"
	}
}

// RelationshipLevel names an affinity in [-1,1].
func RelationshipLevel(affinity float64) string {
	switch {
	case affinity <= -0.5:
		return "Rival"
	case affinity < -0.1:
		return "Distant"
	case affinity <= 0.2:
		return "Neutral"
	case affinity <= 0.6:
		return "Friendly"
	default:
		return "Close"
	}
}
