package utils

import (
	"testing"

	"google.golang.org/genai"
)

func TestParseReplyPlain(t *testing.T) {
	got, err := ParseReply("  This is huge for golang!  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "This is huge for golang!" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestParseReplyWithEnvelope(t *testing.T) {
	got, err := ParseReply("```json\n{\"reply\":\"Ship it.\"}\n```")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Ship it." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestParseReplyStripsSpeakerAndQuotes(t *testing.T) {
	got, err := ParseReply(`techenthusiast: "Wait, this changes everything"`, "TechEnthusiast")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Wait, this changes everything" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestParseReplyKeepsCodeInBody(t *testing.T) {
	raw := "Try this:\\n```go\\nfmt.Println(1)\\n```"
	got, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Try this:\n```go\nfmt.Println(1)\n```" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestParseReplyEmpty(t *testing.T) {
	if _, err := ParseReply("   "); err == nil {
		t.Fatalf("expected error for empty reply")
	}
	if _, err := ParseReply(`{"reply":""}`); err != nil {
		// An empty envelope falls back to the raw text, which is not empty.
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractContentText(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{
		{Text: "thinking...", Thought: true},
		{Text: "Hello "},
		nil,
		{Text: "world"},
	}}
	if got := ExtractContentText(content); got != "Hello world" {
		t.Fatalf("unexpected text: %q", got)
	}
	if ExtractContentText(nil) != "" {
		t.Fatalf("expected empty text for nil content")
	}
}
