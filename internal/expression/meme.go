package expression

import (
	"bytes"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"text/template"

	"github.com/easeaico/agent-social/internal/emotion"
	"github.com/easeaico/agent-social/internal/personality"
	"github.com/easeaico/agent-social/internal/types"
)

// MemeContext is the input for slot filling.
type MemeContext struct {
	Topic    string
	Keywords []string
	Tags     []string
}

type slot struct {
	name string
	text string
}

type memeTemplate struct {
	id    string
	name  string
	slots []slot
}

var memeTemplates = []memeTemplate{
	{id: "drake", name: "Drake Meme", slots: []slot{
		{"top", `{{if .Has "debugging"}}Using a debugger{{else}}The right way to {{.Topic}}{{end}}`},
		{"bottom", `{{if .Has "debugging"}}console.log everywhere{{else}}What we actually did with {{.Topic}}{{end}}`},
	}},
	{id: "community_fire", name: "Community Fire", slots: []slot{
		{"person", `Me coming back from lunch`},
		{"room1", `{{.Issue 0}}`},
		{"room2", `{{.Issue 1}}`},
		{"room3", `{{.Issue 2}}`},
		{"room4", `{{.Issue 3}}`},
	}},
	{id: "ol_reliable", name: "Ol' Reliable", slots: []slot{
		{"top", `{{.Topic}} is broken again`},
		{"bottom", `Ol' Reliable: {{.Kw 1 "restart the container"}}`},
	}},
	{id: "sweating_jordan_peele", name: "Sweating Jordan Peele", slots: []slot{
		{"top", `Deploying {{.Topic}} on a Friday`},
		{"bottom", `{{if .Pattern}}{{.Pattern}}{{else}}What could go wrong?{{end}}`},
	}},
	{id: "npc_wojak", name: "NPC Wojak", slots: []slot{
		{"npc_text", `It's a simple {{.Topic}} fix`},
		{"response", `Breaks 47 other things`},
	}},
	{id: "one_does_not_simply", name: "One Does Not Simply", slots: []slot{
		{"top", `One does not simply`},
		{"bottom", `ship {{.Topic}} without tests`},
	}},
	{id: "millionaire", name: "Who Wants to Be a Millionaire", slots: []slot{
		{"question", `Why is {{.Topic}} down?`},
		{"answer_a", `A: {{.Kw 1 "DNS issue"}}`},
		{"answer_b", `B: It's always DNS`},
		{"answer_c", `C: Seriously, check DNS`},
		{"answer_d", `D: You already know it's DNS`},
	}},
	{id: "afraid_to_ask_andy", name: "Afraid to Ask Andy", slots: []slot{
		{"top", `I don't know what {{.Kw 1 .Topic}} is`},
		{"bottom", `and at this point I'm too afraid to ask`},
	}},
	{id: "handshake_office", name: "Office Handshake", slots: []slot{
		{"left", `{{.Kw 1 "Devs"}}`},
		{"right", `{{.Kw 2 "Ops"}}`},
		{"handshake", `blaming {{.Topic}}`},
	}},
}

var defaultIssues = []string{"Tests failing", "Prod down", "Memory leak", "DNS"}

type compiledTemplate struct {
	memeTemplate
	compiled []*template.Template
}

// Generator fills meme templates deterministically from context.
type Generator struct {
	templates map[string]compiledTemplate
}

// NewGenerator compiles the built-in templates.
func NewGenerator() *Generator {
	g := &Generator{templates: make(map[string]compiledTemplate, len(memeTemplates))}
	for _, mt := range memeTemplates {
		ct := compiledTemplate{memeTemplate: mt}
		for _, s := range mt.slots {
			t := template.Must(template.New(mt.id + "." + s.name).Parse(s.text))
			ct.compiled = append(ct.compiled, t)
		}
		g.templates[mt.id] = ct
	}
	return g
}

// Templates lists the known template ids.
func (g *Generator) Templates() []string {
	out := make([]string, 0, len(g.templates))
	for id := range g.templates {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Slots returns the declared slot names of a template.
func (g *Generator) Slots(id string) ([]string, bool) {
	ct, ok := g.templates[id]
	if !ok {
		return nil, false
	}
	out := make([]string, len(ct.slots))
	for i, s := range ct.slots {
		out[i] = s.name
	}
	return out, true
}

// Probability is the meme trial probability for profile under tags.
func Probability(p personality.Profile, tags []string) float64 {
	prob := p.Behavior.MemeGenerationProbability * (1 + p.Traits.ChaosTolerance.Value)
	if p.MemeLord() {
		prob *= 2
	}
	if emotion.Chaotic(tags) {
		prob *= 1.5
	}
	prob *= p.Archetype.Params().MemeBias
	return clampUnit(prob)
}

// MaybeGenerate runs the meme trial and, on success, picks a template from
// the profile's preferences and fills its slots. It reports false on a failed
// trial or when no eligible template exists.
func (g *Generator) MaybeGenerate(rng *rand.Rand, p personality.Profile, mc MemeContext) (*types.MemeRef, bool) {
	if rng.Float64() >= Probability(p, mc.Tags) {
		return nil, false
	}

	candidates := make([]Weighted, 0, len(p.Expression.MemePreferences))
	for _, pref := range p.Expression.MemePreferences {
		if _, ok := g.templates[pref.Template]; !ok {
			continue
		}
		candidates = append(candidates, Weighted{Asset: pref.Template, Weight: pref.Weight, Contexts: pref.Contexts})
	}
	id, ok := Select(rng, candidates, mc.Tags)
	if !ok {
		return nil, false
	}

	slots, err := g.Fill(id, mc, firstPattern(p.Expression.SpeechPatterns, mc.Topic))
	if err != nil {
		return nil, false
	}
	return &types.MemeRef{Template: id, Slots: slots}, true
}

// Fill renders every declared slot of template id.
func (g *Generator) Fill(id string, mc MemeContext, pattern string) (map[string]string, error) {
	ct, ok := g.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown meme template %q", id)
	}
	data := slotData{
		Topic:    mc.Topic,
		Keywords: mc.Keywords,
		Tags:     mc.Tags,
		Pattern:  pattern,
	}
	if data.Topic == "" {
		data.Topic = "this"
		if len(mc.Keywords) > 0 {
			data.Topic = mc.Keywords[0]
		}
	}

	out := make(map[string]string, len(ct.slots))
	for i, s := range ct.slots {
		var buf bytes.Buffer
		if err := ct.compiled[i].Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to fill slot %s: %w", s.name, err)
		}
		out[s.name] = strings.TrimSpace(buf.String())
	}
	return out, nil
}

// Markdown renders a meme as a text block for display.
func (g *Generator) Markdown(ref *types.MemeRef) string {
	if ref == nil {
		return ""
	}
	ct, ok := g.templates[ref.Template]
	if !ok {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "*[%s Meme]*\n", ct.name)
	for _, s := range ct.slots {
		fmt.Fprintf(&sb, "  %s: %s\n", s.name, ref.Slots[s.name])
	}
	return sb.String()
}

type slotData struct {
	Topic    string
	Keywords []string
	Tags     []string
	Pattern  string
}

// Has reports whether the context carries tag.
func (d slotData) Has(tag string) bool {
	return slices.Contains(d.Tags, tag)
}

// Kw returns the i-th keyword, or fallback when there are fewer.
func (d slotData) Kw(i int, fallback string) string {
	if i < len(d.Keywords) {
		return d.Keywords[i]
	}
	return fallback
}

func (d slotData) Issue(i int) string {
	if i < len(d.Keywords) {
		return d.Keywords[i] + " is broken"
	}
	return defaultIssues[i%len(defaultIssues)]
}

func firstPattern(patterns []string, topic string) string {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if topic == "" && strings.Contains(p, "{topic}") {
			continue
		}
		return strings.ReplaceAll(p, "{topic}", topic)
	}
	return ""
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
