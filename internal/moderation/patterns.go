// Package moderation rates candidate replies and tracks per-agent and
// community chaos.
package moderation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/easeaico/agent-social/internal/types"
)

// Substitution replaces soft profanity with a milder phrase.
type Substitution struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// Patterns is the moderation rule set. Every pattern is matched case
// insensitively.
type Patterns struct {
	Blocked []string       `yaml:"blocked_patterns"`
	Modify  []Substitution `yaml:"modify_patterns"`
	Chaos   []string       `yaml:"chaos_patterns"`
	Quality []string       `yaml:"quality_patterns"`
}

// DefaultPatterns returns the built-in rule set.
func DefaultPatterns() Patterns {
	return Patterns{
		Blocked: []string{
			`\b(malicious|exploit|hack\s+into)\b`,
			`\brm\s+-rf\s+/`,
			`\bformat\s+c:`,
			`@everyone|@here`,
		},
		Modify: []Substitution{
			{Pattern: `\bwtf\b`, Replacement: "what the fork"},
			{Pattern: `\bshit\b`, Replacement: "stuff"},
			{Pattern: `\bhell\b`, Replacement: "heck"},
			{Pattern: `\bdamn\b`, Replacement: "dang"},
			{Pattern: `fuck`, Replacement: "frick"},
		},
		Chaos: []string{
			`yolo.*prod`,
			`friday.*deploy`,
			`test.*production`,
			`who needs (tests|documentation)`,
			`works on my machine`,
		},
		Quality: []string{
			`interesting\s+approach`,
			`good\s+point`,
			`learned\s+something`,
			`helpful`,
			`thanks\s+for`,
		},
	}
}

// LoadPatterns reads a YAML rule set. An empty path or a missing file yields
// the defaults; a malformed file or an invalid expression is a ConfigError.
// Sections absent from the file keep their defaults.
func LoadPatterns(path string) (Patterns, error) {
	defaults := DefaultPatterns()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("moderation patterns not found, using defaults", "path", path)
		return defaults, nil
	}
	if err != nil {
		return Patterns{}, fmt.Errorf("failed to read moderation patterns: %w", err)
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Patterns{}, types.NewConfigError(path, "moderation.patterns_file", "malformed moderation patterns: %v", err)
	}
	if p.Blocked == nil {
		p.Blocked = defaults.Blocked
	}
	if p.Modify == nil {
		p.Modify = defaults.Modify
	}
	if p.Chaos == nil {
		p.Chaos = defaults.Chaos
	}
	if p.Quality == nil {
		p.Quality = defaults.Quality
	}
	if _, err := p.compile(); err != nil {
		return Patterns{}, types.NewConfigError(path, "moderation.patterns_file", "%v", err)
	}

	slog.Info("loaded moderation patterns",
		"path", path,
		"blocked", len(p.Blocked),
		"modify", len(p.Modify),
		"chaos", len(p.Chaos),
		"quality", len(p.Quality))
	return p, nil
}

type compiledSub struct {
	re          *regexp.Regexp
	replacement string
}

type rules struct {
	blocked []*regexp.Regexp
	modify  []compiledSub
	chaos   []*regexp.Regexp
	quality []*regexp.Regexp
}

func (p Patterns) compile() (*rules, error) {
	var r rules
	var err error
	if r.blocked, err = compileAll("blocked_patterns", p.Blocked); err != nil {
		return nil, err
	}
	if r.chaos, err = compileAll("chaos_patterns", p.Chaos); err != nil {
		return nil, err
	}
	if r.quality, err = compileAll("quality_patterns", p.Quality); err != nil {
		return nil, err
	}
	for i, s := range p.Modify {
		re, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("modify_patterns[%d]: %w", i, err)
		}
		r.modify = append(r.modify, compiledSub{re: re, replacement: s.Replacement})
	}
	return &r, nil
}

func compileAll(section string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// blockedBy returns the first blocklist expression matching text.
func (r *rules) blockedBy(text string) (string, bool) {
	for _, re := range r.blocked {
		if re.MatchString(text) {
			return re.String(), true
		}
	}
	return "", false
}

// sanitize applies every substitution and reports whether any matched.
func (r *rules) sanitize(text string) (string, bool) {
	changed := false
	for _, s := range r.modify {
		if s.re.MatchString(text) {
			text = s.re.ReplaceAllLiteralString(text, s.replacement)
			changed = true
		}
	}
	return text, changed
}

func countMatches(res []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range res {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}
