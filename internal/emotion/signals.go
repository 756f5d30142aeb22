package emotion

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

var (
	positiveKeywords = []string{
		"good", "great", "awesome", "love", "happy", "excited", "lol", "nice",
		"thanks", "thank you", "helpful", "agree",
	}
	negativeKeywords = []string{
		"bad", "hate", "angry", "frustrated", "broken", "failed", "wrong",
		"annoy", "upset", "terrible",
	}
	techKeywords = []string{
		"docker", "kubernetes", "react", "python", "javascript", "api",
		"database", "deployment", "production", "bug", "test", "deploy",
	}
	stopWords = map[string]struct{}{
		"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {}, "an": {},
		"and": {}, "or": {}, "but": {}, "this": {}, "that": {}, "with": {},
		"from": {}, "have": {}, "just": {}, "what": {}, "your": {}, "about": {},
	}
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
)

// Sentiment scores text in [-1,1] as (positive-negative)/(positive+negative)
// keyword hits; text with no hits is 0.
func Sentiment(text string) float64 {
	lowered := strings.ToLower(text)
	pos := countAny(lowered, positiveKeywords)
	neg := countAny(lowered, negativeKeywords)
	if pos+neg == 0 {
		return 0
	}
	return ClampSentiment(float64(pos-neg) / float64(pos+neg))
}

// Tags returns the context tag set used to filter reactions and memes.
func Tags(text string) []string {
	lowered := strings.ToLower(text)
	set := make(map[string]struct{})
	add := func(tags ...string) {
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}

	for _, kw := range techKeywords {
		if strings.Contains(lowered, kw) {
			add(kw)
		}
	}
	if containsAny(lowered, []string{"error", "broken", "crash", "bug"}) {
		add("debugging", "confusion", "broken")
	}
	if containsAny(lowered, []string{"finally", "works", "fixed", "shipped"}) {
		add("success", "relief")
	}
	if containsAny(lowered, []string{"code", "function", "refactor", "commit"}) {
		add("coding")
	}
	if containsAny(lowered, []string{" vs ", " vs. ", "versus", "better than", "instead of"}) {
		add("comparison")
	}
	if containsAny(lowered, []string{"outage", "incident", "on fire", "rollback", "yolo"}) {
		add("chaos", "fire")
	}
	if strings.Contains(text, "?") {
		add("question")
	}
	if strings.Count(text, "!") > 2 {
		add("excitement")
	}
	for _, m := range hashtagPattern.FindAllStringSubmatch(lowered, -1) {
		add(m[1])
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Keywords returns up to limit content words by descending frequency.
func Keywords(text string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}

// Topics returns the interest topics (lowercase keys of weights) present in text.
func Topics(text string, weights map[string]float64) []string {
	lowered := strings.ToLower(text)
	var out []string
	for topic := range weights {
		if topic != "" && strings.Contains(lowered, strings.ToLower(topic)) {
			out = append(out, strings.ToLower(topic))
		}
	}
	sort.Strings(out)
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func countAny(text string, keywords []string) int {
	n := 0
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			n++
		}
	}
	return n
}

var chaoticTags = []string{"chaos", "fire", "broken"}

// Chaotic reports whether tags mark a heated or broken thread.
func Chaotic(tags []string) bool {
	return slices.ContainsFunc(tags, func(t string) bool {
		return slices.Contains(chaoticTags, t)
	})
}
