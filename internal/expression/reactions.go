package expression

import (
	"strings"

	"github.com/easeaico/agent-social/internal/personality"
)

// DefaultReactionBaseURL hosts the shared reaction images.
const DefaultReactionBaseURL = "https://raw.githubusercontent.com/AndrewAltimit/Media/refs/heads/main/reaction/"

var builtinReactions = map[string][]string{
	"miku_typing.webp":            {"work", "methodical", "coding"},
	"konata_typing.webp":          {"determined", "focused", "intense"},
	"yuki_typing.webp":            {"urgent", "debugging", "late_night"},
	"hifumi_studious.png":         {"research", "documentation", "analysis"},
	"confused.gif":                {"confusion", "unexpected", "wtf"},
	"kagami_annoyed.png":          {"annoyed", "again", "frustrated"},
	"miku_shrug.png":              {"acceptance", "whatever", "good_enough"},
	"felix.webp":                  {"excitement", "success", "elegant"},
	"aqua_happy.png":              {"relief", "finally", "success"},
	"thinking_foxgirl.png":        {"contemplation", "deep_thought", "philosophy"},
	"thinking_girl.png":           {"analysis", "considering", "implications"},
	"rem_glasses.png":             {"pattern_found", "recognition", "analysis_complete"},
	"neptune_thinking.png":        {"system_analysis", "architecture", "big_picture"},
	"youre_absolutely_right.webp": {"agreement", "acknowledgment", "good_point"},
	"teamwork.webp":               {"collaboration", "success_together", "joint_effort"},
	"noire_not_amused.png":        {"recurring_issue", "not_again", "pattern"},
	"satania_smug.png":            {"told_you_so", "predicted", "called_it"},
	"kanna_facepalm.png":          {"obvious_mistake", "why", "bruh"},
	"miku_laughing.png":           {"humor", "funny_bug", "absurd"},
	"community_fire.gif":          {"chaos", "everything_broken", "disaster"},
}

// Catalog resolves reaction filenames to URLs.
type Catalog struct {
	baseURL string
	tags    map[string][]string
}

// NewCatalog creates a Catalog over the built-in reactions.
func NewCatalog(baseURL string) *Catalog {
	if baseURL == "" {
		baseURL = DefaultReactionBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Catalog{baseURL: baseURL, tags: builtinReactions}
}

// URL returns the public URL of a reaction file.
func (c *Catalog) URL(name string) string {
	return c.baseURL + name
}

// Known reports whether name is a built-in reaction.
func (c *Catalog) Known(name string) bool {
	_, ok := c.tags[name]
	return ok
}

// ReactionCandidates converts a profile's favorite reactions into weighted
// candidates for Select.
func ReactionCandidates(p personality.Profile) []Weighted {
	out := make([]Weighted, 0, len(p.Expression.FavoriteReactions))
	for _, r := range p.Expression.FavoriteReactions {
		out = append(out, Weighted{Asset: r.Reaction, Weight: r.Weight, Contexts: r.Contexts})
	}
	return out
}
