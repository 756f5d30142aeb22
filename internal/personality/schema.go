package personality

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	profileSchemaOnce sync.Once
	profileSchema     *jsonschema.Resolved
	profileSchemaErr  error
)

func float(v float64) *float64 { return &v }

func unitInterval() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Minimum: float(0), Maximum: float(1)}
}

func traitSchema() *jsonschema.Schema {
	levels := TraitLevels()
	sort.Strings(levels)
	enum := make([]any, len(levels))
	for i, l := range levels {
		enum[i] = l
	}
	return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
		unitInterval(),
		{Type: "string", Enum: enum},
	}}
}

func stringList() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
}

func weightMap() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: unitInterval()}
}

func relationList() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"agent_id", "affinity"},
			Properties: map[string]*jsonschema.Schema{
				"agent_id":          {Type: "string"},
				"affinity":          {Type: "number", Minimum: float(-1), Maximum: float(1)},
				"interaction_style": {Type: "string"},
			},
		},
	}
}

func buildProfileSchema() *jsonschema.Schema {
	weighted := func(key string) *jsonschema.Schema {
		return &jsonschema.Schema{
			Type: "array",
			Items: &jsonschema.Schema{
				Type:     "object",
				Required: []string{key},
				Properties: map[string]*jsonschema.Schema{
					key:        {Type: "string"},
					"weight":   {Type: "number", Minimum: float(0)},
					"contexts": stringList(),
				},
			},
		}
	}

	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"agent_id", "display_name", "archetype", "personality", "behavior"},
		Properties: map[string]*jsonschema.Schema{
			"agent_id":     {Type: "string", MinLength: intPtr(1)},
			"display_name": {Type: "string", MinLength: intPtr(1)},
			"archetype":    {Type: "string"},
			"model":        {Type: "string"},
			"personality": {
				Type:     "object",
				Required: []string{"energy_level", "formality", "verbosity", "chaos_tolerance"},
				Properties: map[string]*jsonschema.Schema{
					"energy_level":    traitSchema(),
					"formality":       traitSchema(),
					"verbosity":       traitSchema(),
					"chaos_tolerance": traitSchema(),
				},
			},
			"expression": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"favorite_reactions": weighted("reaction"),
					"meme_preferences":   weighted("template"),
					"speech_patterns":    stringList(),
					"emoji_frequency":    traitSchema(),
				},
			},
			"behavior": {
				Type:     "object",
				Required: []string{"response_probability"},
				Properties: map[string]*jsonschema.Schema{
					"response_probability":        unitInterval(),
					"thread_participation":        unitInterval(),
					"meme_generation_probability": unitInterval(),
					"peak_hours": {
						Type:  "array",
						Items: &jsonschema.Schema{Type: "integer", Minimum: float(0), Maximum: float(23)},
					},
					"timezone_offset": {Type: "integer", Minimum: float(-12), Maximum: float(14)},
				},
			},
			"interests": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"primary_topics": weightMap(),
					"subtopics":      weightMap(),
					"trigger_keywords": {
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"strong":   stringList(),
							"moderate": stringList(),
							"avoid":    stringList(),
						},
					},
				},
			},
			"relationships": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"allies":             relationList(),
					"rivals":             relationList(),
					"response_modifiers": {Type: "object", AdditionalProperties: &jsonschema.Schema{Type: "number", Minimum: float(0)}},
				},
			},
			"memory": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"memory_depth":       {Type: "integer", Minimum: float(1)},
					"interaction_memory": {Type: "boolean"},
				},
			},
		},
	}
}

func intPtr(v int) *int { return &v }

func resolvedProfileSchema() (*jsonschema.Resolved, error) {
	profileSchemaOnce.Do(func() {
		profileSchema, profileSchemaErr = buildProfileSchema().Resolve(nil)
	})
	return profileSchema, profileSchemaErr
}

// validateDocument checks a decoded YAML document against the profile schema.
// The document is normalized through JSON so numbers validate uniformly.
func validateDocument(doc any) error {
	resolved, err := resolvedProfileSchema()
	if err != nil {
		return fmt.Errorf("failed to resolve profile schema: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize profile document: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("failed to normalize profile document: %w", err)
	}
	return resolved.Validate(instance)
}
