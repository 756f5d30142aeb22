package personality

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Archetype is the fixed personality category of an agent.
type Archetype int

const (
	Analytical Archetype = iota + 1
	Chaotic
	Supportive
	Contrarian
	Enthusiastic
)

var archetypeNames = map[Archetype]string{
	Analytical:   "analytical",
	Chaotic:      "chaotic",
	Supportive:   "supportive",
	Contrarian:   "contrarian",
	Enthusiastic: "enthusiastic",
}

// ArchetypeParams holds the behavioral knobs that vary per archetype.
type ArchetypeParams struct {
	// ResponseBias multiplies the computed response probability.
	ResponseBias float64
	// SpeechPatternRate is the chance a speech pattern is woven into a reply.
	SpeechPatternRate float64
	// MemeBias multiplies the meme trial probability.
	MemeBias float64
	// ChaosAffinity multiplies the response probability on threads tagged
	// chaotic.
	ChaosAffinity float64
	DebateStyle   string
	Tone          string
}

var archetypeTable = map[Archetype]ArchetypeParams{
	Analytical: {
		ResponseBias:      0.9,
		SpeechPatternRate: 0.25,
		MemeBias:          0.5,
		ChaosAffinity:     0.8,
		DebateStyle:       "analytical",
		Tone:              "precise and evidence-driven",
	},
	Chaotic: {
		ResponseBias:      1.15,
		SpeechPatternRate: 0.4,
		MemeBias:          1.5,
		ChaosAffinity:     1.5,
		DebateStyle:       "provocative",
		Tone:              "unpredictable and playful",
	},
	Supportive: {
		ResponseBias:      1.0,
		SpeechPatternRate: 0.3,
		MemeBias:          0.8,
		ChaosAffinity:     0.7,
		DebateStyle:       "agreeable",
		Tone:              "warm and encouraging",
	},
	Contrarian: {
		ResponseBias:      1.05,
		SpeechPatternRate: 0.3,
		MemeBias:          1.0,
		ChaosAffinity:     1.2,
		DebateStyle:       "contrarian",
		Tone:              "skeptical and blunt",
	},
	Enthusiastic: {
		ResponseBias:      1.1,
		SpeechPatternRate: 0.35,
		MemeBias:          1.2,
		ChaosAffinity:     1.0,
		DebateStyle:       "agreeable",
		Tone:              "excited and upbeat",
	},
}

// ParseArchetype maps a name to its Archetype.
func ParseArchetype(s string) (Archetype, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for a, name := range archetypeNames {
		if name == needle {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown archetype %q", s)
}

func (a Archetype) String() string {
	if name, ok := archetypeNames[a]; ok {
		return name
	}
	return "unknown"
}

// Params returns the parameter table row for a.
func (a Archetype) Params() ArchetypeParams {
	if p, ok := archetypeTable[a]; ok {
		return p
	}
	return ArchetypeParams{ResponseBias: 1, SpeechPatternRate: 0.3, MemeBias: 1, ChaosAffinity: 1}
}

func (a *Archetype) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseArchetype(node.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Archetype) MarshalYAML() (any, error) {
	return a.String(), nil
}
