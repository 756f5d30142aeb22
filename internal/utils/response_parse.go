package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// replyEnvelope is the JSON shape some models wrap their answer in.
type replyEnvelope struct {
	Reply   string `json:"reply"`
	Comment string `json:"comment"`
}

// ParseReply extracts the comment text from a raw completion. It unwraps a
// JSON envelope or a code fence when present, strips a leading speaker label
// and surrounding quotes, and fails when nothing is left.
func ParseReply(raw string, speakers ...string) (string, error) {
	clean := strings.TrimSpace(NormalizeEscapes(raw))
	clean = stripFence(clean)

	if start, end := strings.Index(clean, "{"), strings.LastIndex(clean, "}"); start == 0 && end > start {
		var env replyEnvelope
		if err := json.Unmarshal([]byte(clean[start:end+1]), &env); err == nil {
			switch {
			case strings.TrimSpace(env.Reply) != "":
				clean = env.Reply
			case strings.TrimSpace(env.Comment) != "":
				clean = env.Comment
			}
		}
	}

	clean = strings.TrimSpace(clean)
	for _, s := range speakers {
		if s == "" {
			continue
		}
		prefix := s + ":"
		if len(clean) >= len(prefix) && strings.EqualFold(clean[:len(prefix)], prefix) {
			clean = strings.TrimSpace(clean[len(prefix):])
			break
		}
	}
	if len(clean) >= 2 && clean[0] == '"' && clean[len(clean)-1] == '"' {
		clean = strings.TrimSpace(clean[1 : len(clean)-1])
	}

	if clean == "" {
		return "", fmt.Errorf("missing reply")
	}
	return clean, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := text[3 : len(text)-3]
	if nl := strings.Index(inner, "\n"); nl >= 0 && !strings.Contains(inner[:nl], " ") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}
