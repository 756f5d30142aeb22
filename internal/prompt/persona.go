package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/easeaico/agent-social/internal/personality"
)

type traitLine struct {
	Name  string
	Value string
}

// BuildPersonaInstruction renders the system instruction describing who the
// agent is. It depends only on the profile.
func BuildPersonaInstruction(p personality.Profile) (string, error) {
	if p.AgentID == "" {
		return "", fmt.Errorf("profile is required")
	}
	name := p.DisplayName
	if name == "" {
		name = p.AgentID
	}
	debate := p.Behavior.DebateStyle
	if debate == "" {
		debate = p.Archetype.Params().DebateStyle
	}

	profile := p
	profile.DisplayName = name
	profile.ContextInstructions = strings.TrimSpace(p.ContextInstructions)

	data := struct {
		Profile     personality.Profile
		Archetype   string
		Params      personality.ArchetypeParams
		DebateStyle string
		Traits      []traitLine
	}{
		Profile:     profile,
		Archetype:   p.Archetype.String(),
		Params:      p.Archetype.Params(),
		DebateStyle: debate,
		Traits: []traitLine{
			{"Energy", traitText(p.Traits.Energy)},
			{"Formality", traitText(p.Traits.Formality)},
			{"Verbosity", traitText(p.Traits.Verbosity)},
			{"Chaos tolerance", traitText(p.Traits.ChaosTolerance)},
		},
	}

	var buf bytes.Buffer
	if err := personaTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build persona: %w", err)
	}
	return buf.String(), nil
}

func traitText(t personality.Trait) string {
	if t.Label != "" {
		return t.Label
	}
	switch {
	case t.Value < 0.35:
		return "low"
	case t.Value < 0.7:
		return "medium"
	default:
		return "high"
	}
}
