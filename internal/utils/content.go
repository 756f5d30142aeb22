package utils

import (
	"strings"

	"google.golang.org/genai"
)

// ExtractContentText concatenates the text parts of content.
func ExtractContentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// NormalizeEscapes turns literal escape sequences some models emit into
// real characters.
func NormalizeEscapes(text string) string {
	text = strings.ReplaceAll(text, "\\r\\n", "\n")
	text = strings.ReplaceAll(text, "\\n", "\n")
	text = strings.ReplaceAll(text, "\\\"", "\"")
	return text
}
