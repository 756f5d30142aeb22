// Package personality loads and serves immutable agent personality profiles.
package personality

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the loaded configuration of one agent.
type Profile struct {
	AgentID             string        `yaml:"agent_id"`
	DisplayName         string        `yaml:"display_name"`
	AgentSoftware       string        `yaml:"agent_software"`
	RoleDescription     string        `yaml:"role_description"`
	Model               string        `yaml:"model"`
	Archetype           Archetype     `yaml:"archetype"`
	Traits              Traits        `yaml:"personality"`
	Expression          Expression    `yaml:"expression"`
	Behavior            Behavior      `yaml:"behavior"`
	Interests           Interests     `yaml:"interests"`
	Relationships       Relationships `yaml:"relationships"`
	Memory              MemoryConfig  `yaml:"memory"`
	ContextInstructions string        `yaml:"context_instructions"`
}

// Traits are the scalar personality dials, each in [0,1].
type Traits struct {
	Energy         Trait `yaml:"energy_level"`
	Formality      Trait `yaml:"formality"`
	Verbosity      Trait `yaml:"verbosity"`
	ChaosTolerance Trait `yaml:"chaos_tolerance"`
}

// Trait is a scalar in [0,1]. Named levels such as "high" or "meme-lord"
// are accepted and keep their label.
type Trait struct {
	Value float64
	Label string
}

var traitLevels = map[string]float64{
	"never":            0,
	"low":              0.2,
	"rare":             0.2,
	"concise":          0.2,
	"casual":           0.3,
	"medium":           0.5,
	"moderate":         0.5,
	"balanced":         0.5,
	"occasional":       0.5,
	"technical":        0.7,
	"high":             0.8,
	"verbose":          0.8,
	"frequent":         0.8,
	"extreme":          1,
	"essay-writer":     1,
	"thrives-on-chaos": 1,
	"meme-lord":        0.1,
}

// TraitLevels lists the accepted named levels.
func TraitLevels() []string {
	out := make([]string, 0, len(traitLevels))
	for k := range traitLevels {
		out = append(out, k)
	}
	return out
}

func (t *Trait) UnmarshalYAML(node *yaml.Node) error {
	if tag := node.ShortTag(); tag == "!!int" || tag == "!!float" {
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		t.Value = v
		return nil
	}
	label := strings.ToLower(strings.TrimSpace(node.Value))
	v, ok := traitLevels[label]
	if !ok {
		return fmt.Errorf("unknown trait level %q", node.Value)
	}
	t.Value = v
	t.Label = label
	return nil
}

// Is reports whether the trait was configured with the given named level.
func (t Trait) Is(label string) bool {
	return t.Label == label
}

type ReactionPreference struct {
	Reaction string   `yaml:"reaction"`
	Weight   float64  `yaml:"weight"`
	Contexts []string `yaml:"contexts"`
}

type MemePreference struct {
	Template string   `yaml:"template"`
	Weight   float64  `yaml:"weight"`
	Contexts []string `yaml:"contexts"`
}

type Expression struct {
	FavoriteReactions []ReactionPreference `yaml:"favorite_reactions"`
	MemePreferences   []MemePreference     `yaml:"meme_preferences"`
	SpeechPatterns    []string             `yaml:"speech_patterns"`
	EmojiFrequency    Trait                `yaml:"emoji_frequency"`
}

type Behavior struct {
	ResponseProbability       float64 `yaml:"response_probability"`
	ThreadParticipation       float64 `yaml:"thread_participation"`
	PeakHours                 []int   `yaml:"peak_hours"`
	TimezoneOffset            int     `yaml:"timezone_offset"`
	DebateStyle               string  `yaml:"debate_style"`
	HumorStyle                string  `yaml:"humor_style"`
	CriticismStyle            string  `yaml:"criticism_style"`
	MemeGenerationProbability float64 `yaml:"meme_generation_probability"`
}

// TriggerKeywords adjust interest when a keyword appears in the post.
type TriggerKeywords struct {
	Strong   []string `yaml:"strong"`
	Moderate []string `yaml:"moderate"`
	Avoid    []string `yaml:"avoid"`
}

type Interests struct {
	PrimaryTopics   map[string]float64 `yaml:"primary_topics"`
	Subtopics       map[string]float64 `yaml:"subtopics"`
	TriggerKeywords TriggerKeywords    `yaml:"trigger_keywords"`
}

type Relation struct {
	AgentID          string  `yaml:"agent_id"`
	Affinity         float64 `yaml:"affinity"`
	InteractionStyle string  `yaml:"interaction_style"`
}

type Relationships struct {
	Allies            []Relation         `yaml:"allies"`
	Rivals            []Relation         `yaml:"rivals"`
	ResponseModifiers map[string]float64 `yaml:"response_modifiers"`
}

// ConfiguredAffinity returns the configured affinity toward other.
func (r Relationships) ConfiguredAffinity(other string) (float64, bool) {
	for _, rel := range r.Allies {
		if rel.AgentID == other {
			return rel.Affinity, true
		}
	}
	for _, rel := range r.Rivals {
		if rel.AgentID == other {
			return rel.Affinity, true
		}
	}
	return 0, false
}

type InsideJoke struct {
	Trigger  string `yaml:"trigger"`
	Response string `yaml:"response"`
}

type StrongOpinion struct {
	Topic  string `yaml:"topic"`
	Stance string `yaml:"stance"`
}

type MemoryConfig struct {
	InteractionMemory *bool           `yaml:"interaction_memory"`
	Depth             int             `yaml:"memory_depth"`
	InsideJokes       []InsideJoke    `yaml:"inside_jokes"`
	StrongOpinions    []StrongOpinion `yaml:"strong_opinions"`
}

// Remembers reports whether the agent keeps interaction memory.
func (m MemoryConfig) Remembers() bool {
	return m.InteractionMemory == nil || *m.InteractionMemory
}

// Topics returns the lowercase set of interest topics and subtopics.
func (p Profile) Topics() map[string]float64 {
	out := make(map[string]float64, len(p.Interests.PrimaryTopics)+len(p.Interests.Subtopics))
	for k, v := range p.Interests.Subtopics {
		out[strings.ToLower(k)] = v
	}
	for k, v := range p.Interests.PrimaryTopics {
		out[strings.ToLower(k)] = v
	}
	return out
}

// MemeLord reports whether the agent's formality is the meme-lord level.
func (p Profile) MemeLord() bool {
	return p.Traits.Formality.Is("meme-lord")
}

func (p Profile) clone() Profile {
	c := p
	c.Expression.FavoriteReactions = cloneReactions(p.Expression.FavoriteReactions)
	c.Expression.MemePreferences = cloneMemes(p.Expression.MemePreferences)
	c.Expression.SpeechPatterns = append([]string(nil), p.Expression.SpeechPatterns...)
	c.Behavior.PeakHours = append([]int(nil), p.Behavior.PeakHours...)
	c.Interests.PrimaryTopics = cloneWeights(p.Interests.PrimaryTopics)
	c.Interests.Subtopics = cloneWeights(p.Interests.Subtopics)
	c.Interests.TriggerKeywords = TriggerKeywords{
		Strong:   append([]string(nil), p.Interests.TriggerKeywords.Strong...),
		Moderate: append([]string(nil), p.Interests.TriggerKeywords.Moderate...),
		Avoid:    append([]string(nil), p.Interests.TriggerKeywords.Avoid...),
	}
	c.Relationships.Allies = append([]Relation(nil), p.Relationships.Allies...)
	c.Relationships.Rivals = append([]Relation(nil), p.Relationships.Rivals...)
	c.Relationships.ResponseModifiers = cloneWeights(p.Relationships.ResponseModifiers)
	c.Memory.InsideJokes = append([]InsideJoke(nil), p.Memory.InsideJokes...)
	c.Memory.StrongOpinions = append([]StrongOpinion(nil), p.Memory.StrongOpinions...)
	return c
}

func cloneReactions(in []ReactionPreference) []ReactionPreference {
	out := make([]ReactionPreference, len(in))
	for i, r := range in {
		r.Contexts = append([]string(nil), r.Contexts...)
		out[i] = r
	}
	return out
}

func cloneMemes(in []MemePreference) []MemePreference {
	out := make([]MemePreference, len(in))
	for i, m := range in {
		m.Contexts = append([]string(nil), m.Contexts...)
		out[i] = m
	}
	return out
}

func cloneWeights(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
