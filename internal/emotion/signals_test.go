package emotion

import (
	"slices"
	"testing"
)

func TestSentiment(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"this is great, love it", 1},
		{"the build is broken and everything failed", -1},
		{"good idea but the test is broken", 0},
		{"a plain sentence", 0},
	}
	for _, c := range cases {
		if got := Sentiment(c.text); got != c.want {
			t.Fatalf("Sentiment(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestLabelAndMood(t *testing.T) {
	if Label(0.5) != EmotionPositive || Label(-0.5) != EmotionNegative || Label(0.1) != EmotionNeutral {
		t.Fatalf("unexpected labels")
	}
	if Mood(nil) != "Neutral" {
		t.Fatalf("empty history should be neutral")
	}
	if Mood([]float64{0.8, 0.6}) != "Happy" {
		t.Fatalf("expected Happy")
	}
	if Mood([]float64{-1, -0.9, -0.8}) != "Angry" {
		t.Fatalf("expected Angry")
	}
}

func TestTags(t *testing.T) {
	tags := Tags("Finally fixed the docker bug!!! Why was it broken?")
	for _, want := range []string{"docker", "debugging", "success", "question", "excitement", "broken"} {
		if !slices.Contains(tags, want) {
			t.Fatalf("expected tag %q in %v", want, tags)
		}
	}
	if !slices.IsSorted(tags) {
		t.Fatalf("tags should be sorted: %v", tags)
	}
}

func TestKeywordsOrderedByFrequency(t *testing.T) {
	got := Keywords("kubernetes pods and kubernetes nodes with pods pods", 2)
	want := []string{"pods", "kubernetes"}
	if !slices.Equal(got, want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}
}

func TestTopics(t *testing.T) {
	got := Topics("Python tips for Kubernetes operators", map[string]float64{"python": 1, "kubernetes": 0.5, "rust": 1})
	if !slices.Equal(got, []string{"kubernetes", "python"}) {
		t.Fatalf("Topics = %v", got)
	}
}

func TestRelationshipLevel(t *testing.T) {
	if RelationshipLevel(0.9) != "Close" || RelationshipLevel(-0.9) != "Rival" || RelationshipLevel(0) != "Neutral" {
		t.Fatalf("unexpected relationship levels")
	}
}

func TestChaotic(t *testing.T) {
	if !Chaotic(Tags("Prod outage, rollback now")) {
		t.Error("outage thread should be chaotic")
	}
	if Chaotic(Tags("Shipped a clean refactor")) {
		t.Error("calm thread should not be chaotic")
	}
}
