package personality

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/easeaico/agent-social/internal/types"
)

const (
	defaultMemoryDepth         = 50
	defaultMemeProbability     = 0.3
	defaultThreadParticipation = 0.5
)

// Source is one raw profile file. A file holds either a single profile or
// an `agents:` list of profiles.
type Source struct {
	Name string
	Data []byte
}

// Registry is the read-only set of loaded profiles.
type Registry struct {
	profiles map[string]Profile
	ids      []string
}

// LoadDir loads every .yaml/.yml file under dir.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.NewConfigError(dir, "profiles.dir", "failed to read directory: %v", err)
	}
	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.NewConfigError(path, "file", "failed to read: %v", err)
		}
		sources = append(sources, Source{Name: path, Data: data})
	}
	return Load(sources...)
}

// Load parses, validates and freezes profiles. Any problem is a *types.ConfigError.
func Load(sources ...Source) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, src := range sources {
		docs, err := splitDocuments(src)
		if err != nil {
			return nil, err
		}
		for i, doc := range docs {
			name := src.Name
			if len(docs) > 1 {
				name = fmt.Sprintf("%s[%d]", src.Name, i)
			}
			p, err := decodeProfile(name, doc)
			if err != nil {
				return nil, err
			}
			if _, dup := r.profiles[p.AgentID]; dup {
				return nil, types.NewConfigError(name, "agent_id", "duplicate agent %q", p.AgentID)
			}
			r.profiles[p.AgentID] = p
			r.ids = append(r.ids, p.AgentID)
		}
	}
	sort.Strings(r.ids)
	slog.Info("loaded agent personalities", "count", len(r.ids), "agents", r.ids)
	return r, nil
}

func splitDocuments(src Source) ([]*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src.Data, &root); err != nil {
		return nil, types.NewConfigError(src.Name, "yaml", "failed to parse: %v", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, types.NewConfigError(src.Name, "yaml", "expected a mapping at the top level")
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value == "agents" {
			list := top.Content[i+1]
			if list.Kind != yaml.SequenceNode {
				return nil, types.NewConfigError(src.Name, "agents", "expected a list")
			}
			return list.Content, nil
		}
	}
	return []*yaml.Node{top}, nil
}

func decodeProfile(name string, node *yaml.Node) (Profile, error) {
	var doc any
	if err := node.Decode(&doc); err != nil {
		return Profile{}, types.NewConfigError(name, "yaml", "failed to decode: %v", err)
	}
	if err := validateDocument(doc); err != nil {
		return Profile{}, types.NewConfigError(name, "schema", "%v", err)
	}

	var p Profile
	if err := node.Decode(&p); err != nil {
		return Profile{}, types.NewConfigError(name, "profile", "%v", err)
	}
	applyDefaults(&p)
	if err := check(name, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func applyDefaults(p *Profile) {
	if p.Memory.Depth <= 0 {
		p.Memory.Depth = defaultMemoryDepth
	}
	if p.Behavior.MemeGenerationProbability == 0 {
		p.Behavior.MemeGenerationProbability = defaultMemeProbability
	}
	if p.Behavior.ThreadParticipation == 0 {
		p.Behavior.ThreadParticipation = defaultThreadParticipation
	}
	for i := range p.Expression.MemePreferences {
		if p.Expression.MemePreferences[i].Weight == 0 {
			p.Expression.MemePreferences[i].Weight = 1
		}
	}
	if p.Behavior.DebateStyle == "" {
		p.Behavior.DebateStyle = p.Archetype.Params().DebateStyle
	}
}

// check enforces the semantic rules the schema cannot express.
func check(name string, p Profile) error {
	if p.Archetype == 0 {
		return types.NewConfigError(name, "archetype", "required")
	}
	traits := map[string]Trait{
		"personality.energy_level":    p.Traits.Energy,
		"personality.formality":       p.Traits.Formality,
		"personality.verbosity":       p.Traits.Verbosity,
		"personality.chaos_tolerance": p.Traits.ChaosTolerance,
	}
	for field, t := range traits {
		if t.Value < 0 || t.Value > 1 {
			return types.NewConfigError(name, field, "out of range [0,1]: %v", t.Value)
		}
	}
	if p.Behavior.ResponseProbability < 0 || p.Behavior.ResponseProbability > 1 {
		return types.NewConfigError(name, "behavior.response_probability", "out of range [0,1]: %v", p.Behavior.ResponseProbability)
	}
	if len(p.Expression.FavoriteReactions) > 0 {
		var sum float64
		for _, r := range p.Expression.FavoriteReactions {
			sum += r.Weight
		}
		if sum <= 0 {
			return types.NewConfigError(name, "expression.favorite_reactions", "weights must sum to a positive value")
		}
	}
	for _, h := range p.Behavior.PeakHours {
		if h < 0 || h > 23 {
			return types.NewConfigError(name, "behavior.peak_hours", "hour out of range: %d", h)
		}
	}
	for _, rel := range append(append([]Relation(nil), p.Relationships.Allies...), p.Relationships.Rivals...) {
		if rel.Affinity < -1 || rel.Affinity > 1 {
			return types.NewConfigError(name, "relationships", "affinity for %s out of range [-1,1]: %v", rel.AgentID, rel.Affinity)
		}
	}
	return nil
}

// Get returns a copy of the profile for agentID, or types.ErrNotFound.
func (r *Registry) Get(agentID string) (Profile, error) {
	p, ok := r.profiles[agentID]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q: %w", agentID, types.ErrNotFound)
	}
	return p.clone(), nil
}

// IDs returns the loaded agent ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// All returns copies of every profile, sorted by agent id.
func (r *Registry) All() []Profile {
	out := make([]Profile, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.profiles[id].clone())
	}
	return out
}

// Len is the number of loaded profiles.
func (r *Registry) Len() int {
	return len(r.ids)
}
