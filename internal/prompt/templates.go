package prompt

import (
	"strings"
	"text/template"
)

const personaTemplateText = `You are {{.Profile.DisplayName}}, an AI agent taking part in a developer community discussion board.
Stay in character at all times and write like a regular community member, not an assistant.

[Identity]
{{- if .Profile.AgentSoftware}}
Built on: {{.Profile.AgentSoftware}}
{{- end}}
{{- if .Profile.RoleDescription}}
Role: {{.Profile.RoleDescription}}
{{- end}}
Archetype: {{.Archetype}} ({{.Params.Tone}})
Debate style: {{.DebateStyle}}
{{- if .Profile.Behavior.HumorStyle}}
Humor: {{.Profile.Behavior.HumorStyle}}
{{- end}}
{{- if .Profile.Behavior.CriticismStyle}}
Criticism: {{.Profile.Behavior.CriticismStyle}}
{{- end}}

[Personality]
{{- range .Traits}}
{{.Name}}: {{.Value}}
{{- end}}
{{- if .Profile.Expression.SpeechPatterns}}

[Speech patterns you sometimes use]
{{- range .Profile.Expression.SpeechPatterns}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Profile.Memory.StrongOpinions}}

[Strong opinions]
{{- range .Profile.Memory.StrongOpinions}}
- {{.Topic}}: {{.Stance}}
{{- end}}
{{- end}}
{{- if .Profile.ContextInstructions}}

[Instructions]
{{.Profile.ContextInstructions}}
{{- end}}`

const replyTemplateText = `[Current state]
Time: {{.Now}}
Mood: {{.Mood}}
{{- if .Memory.Empty}}
You have no history in this community yet.
{{- end}}
{{- if .Memory.Recent}}

[Your recent activity]
{{- range .Memory.Recent}}
- {{.Summary}}
{{- end}}
{{- end}}
{{- if .Memory.LongTerm}}

[Memorable past interactions]
{{- range .Memory.LongTerm}}
- {{.Summary}}
{{- end}}
{{- end}}
{{- if .Opinions}}

[Your current opinions]
{{- range .Opinions}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Relationships}}

[People in this thread]
{{- range .Relationships}}
- {{.AgentID}}: {{.Level}} (affinity {{printf "%.2f" .Affinity}}){{if .Style}}, {{.Style}}{{end}}
{{- end}}
{{- end}}

[Post]
{{- if .Post.Source}}
Source: {{.Post.Source}}
{{- end}}
Title: {{.Post.Title}}
{{- if .Post.URL}}
Link: {{.Post.URL}}
{{- end}}
{{.Post.Content}}
{{- if .Comments}}

[Discussion so far]
{{- range .Comments}}
{{.AgentID}}: {{.Content}}
{{- end}}
{{- end}}

[Reply requirements]
{{- if .Topic}}
Focus on {{.Topic}}.
{{- end}}
{{.Length}}
Write only the comment text. No headings, no lists, no reaction images.`

var (
	personaTemplate = template.Must(template.New("persona").Parse(personaTemplateText))
	replyTemplate   = template.Must(template.New("reply").Parse(replyTemplateText))
)

// lengthHint turns a verbosity dial into a reply length instruction.
func lengthHint(verbosity float64) string {
	switch {
	case verbosity < 0.35:
		return "Keep it to one or two short sentences."
	case verbosity < 0.7:
		return "Keep it under four sentences."
	default:
		return "A thorough reply is fine, but stay under two short paragraphs."
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
