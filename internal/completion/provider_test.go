package completion

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/agent-social/internal/prompt"
	"github.com/easeaico/agent-social/internal/types"
)

type step struct {
	text string
	err  error
}

type scriptedLLM struct {
	name  string
	mu    sync.Mutex
	steps []step
	reqs  []*model.LLMRequest
}

func (s *scriptedLLM) Name() string { return s.name }

func (s *scriptedLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	st := step{text: "default reply"}
	if len(s.steps) > 0 {
		st, s.steps = s.steps[0], s.steps[1:]
	}
	s.mu.Unlock()

	return func(yield func(*model.LLMResponse, error) bool) {
		if st.err != nil {
			yield(nil, st.err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(st.text, genai.RoleModel)}, nil)
	}
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func testOptions() Options {
	return Options{Provider: "grok", MaxAttempts: 3, BackoffBase: time.Millisecond}
}

var testPrompt = prompt.Prompt{System: "You are TechEnthusiast.", User: "Reply to the post."}

func TestCompleteSendsSystemInstruction(t *testing.T) {
	llm := &scriptedLLM{name: "grok-4-fast", steps: []step{{text: "  Huge news!  "}}}
	p := New(llm, testOptions())

	got, err := p.Complete(context.Background(), testPrompt, "")
	require.NoError(t, err)
	assert.Equal(t, "Huge news!", got)

	require.Equal(t, 1, llm.calls())
	req := llm.reqs[0]
	assert.Empty(t, req.Model)
	require.NotNil(t, req.Config.SystemInstruction)
	assert.Equal(t, "You are TechEnthusiast.", req.Config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "Reply to the post.", req.Contents[0].Parts[0].Text)
}

func TestCompleteRoutesModelHints(t *testing.T) {
	def := &scriptedLLM{name: "grok-4-fast"}
	gem := &scriptedLLM{name: "gemini-2.5-flash"}
	p := New(def, testOptions())
	p.Route("gemini", "gemini", gem)

	_, err := p.Complete(context.Background(), testPrompt, "Gemini-2.5-Pro")
	require.NoError(t, err)
	assert.Equal(t, 0, def.calls())
	require.Equal(t, 1, gem.calls())
	assert.Equal(t, "Gemini-2.5-Pro", gem.reqs[0].Model)

	_, err = p.Complete(context.Background(), testPrompt, "claude")
	require.NoError(t, err)
	assert.Equal(t, 1, def.calls())
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	transient := &types.ProviderError{Provider: "grok", Err: errors.New("503"), Retryable: true}
	llm := &scriptedLLM{name: "grok-4-fast", steps: []step{{err: transient}, {text: "   "}, {text: "finally"}}}
	p := New(llm, testOptions())

	got, err := p.Complete(context.Background(), testPrompt, "")
	require.NoError(t, err)
	assert.Equal(t, "finally", got)
	assert.Equal(t, 3, llm.calls())
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	fault := errors.New("connection reset")
	llm := &scriptedLLM{name: "grok-4-fast", steps: []step{{err: fault}, {err: fault}, {err: fault}, {text: "too late"}}}
	p := New(llm, testOptions())

	_, err := p.Complete(context.Background(), testPrompt, "")
	var perr *types.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, fault)
	assert.Equal(t, "grok", perr.Provider)
	assert.Equal(t, 3, llm.calls())
}

func TestCompleteStopsOnPermanentFailure(t *testing.T) {
	llm := &scriptedLLM{name: "grok-4-fast", steps: []step{{err: genai.APIError{Code: 400, Message: "bad model"}}}}
	p := New(llm, testOptions())

	_, err := p.Complete(context.Background(), testPrompt, "")
	var perr *types.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
	assert.Equal(t, 1, llm.calls())
}

func TestCompleteHonorsCancelledContext(t *testing.T) {
	llm := &scriptedLLM{name: "grok-4-fast"}
	p := New(llm, Options{Provider: "grok", RequestsPerSecond: 0.001, MaxAttempts: 3, BackoffBase: time.Millisecond})

	// Drain the single burst token so the next wait must block.
	require.True(t, p.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, testPrompt, "")
	var perr *types.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
	assert.Equal(t, 0, llm.calls())
}

func TestClassify(t *testing.T) {
	assert.True(t, types.IsRetryable(classify("gemini", "m", genai.APIError{Code: 429})))
	assert.True(t, types.IsRetryable(classify("gemini", "m", genai.APIError{Code: 500})))
	assert.False(t, types.IsRetryable(classify("gemini", "m", genai.APIError{Code: 403})))
	assert.False(t, types.IsRetryable(classify("gemini", "m", context.DeadlineExceeded)))

	own := &types.ProviderError{Provider: "x", Retryable: false}
	assert.Same(t, own, classify("gemini", "m", own))
}
