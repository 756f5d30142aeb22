// Package completion turns prompts into reply text through a paced,
// retrying model.LLM.
package completion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/agent-social/internal/prompt"
	"github.com/easeaico/agent-social/internal/types"
	"github.com/easeaico/agent-social/internal/utils"
)

// Options tune pacing and retries.
type Options struct {
	// Provider names the default backend in errors and metrics.
	Provider          string
	RequestsPerSecond float64
	MaxAttempts       int
	BackoffBase       time.Duration
	MaxOutputTokens   int32
}

type route struct {
	family   string
	provider string
	llm      model.LLM
}

// Provider completes prompts against a default model, routing model hints
// that name a registered family to that family's model instead.
type Provider struct {
	opts    Options
	llm     model.LLM
	routes  []route
	limiter *rate.Limiter
}

// New creates a Provider over the default llm.
func New(llm model.LLM, opts Options) *Provider {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Provider{
		opts:    opts,
		llm:     llm,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Route sends hints containing family (case-insensitive) to llm, using the
// hint itself as the model name.
func (p *Provider) Route(family, provider string, llm model.LLM) {
	p.routes = append(p.routes, route{family: strings.ToLower(family), provider: provider, llm: llm})
}

func (p *Provider) resolve(modelHint string) (model.LLM, string, string) {
	hint := strings.ToLower(strings.TrimSpace(modelHint))
	if hint != "" {
		for _, r := range p.routes {
			if strings.Contains(hint, r.family) {
				return r.llm, r.provider, modelHint
			}
		}
	}
	return p.llm, p.opts.Provider, ""
}

// Complete returns the reply text for pr. Retryable provider faults are
// retried with exponential backoff up to MaxAttempts; the returned error is
// always a *types.ProviderError.
func (p *Provider) Complete(ctx context.Context, pr prompt.Prompt, modelHint string) (string, error) {
	llm, provider, modelName := p.resolve(modelHint)
	if modelName == "" {
		modelName = llm.Name()
	}

	attempt := 0
	op := func() (string, error) {
		attempt++
		if err := p.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(&types.ProviderError{Provider: provider, Model: modelName, Err: err})
		}
		text, err := p.generate(ctx, llm, provider, modelName, pr)
		if err != nil {
			providerAttempts.WithLabelValues(provider, "error").Inc()
			if !types.IsRetryable(err) {
				return "", backoff.Permanent(err)
			}
			slog.Warn("completion attempt failed",
				"provider", provider,
				"model", modelName,
				"attempt", attempt,
				"error", err.Error())
			return "", err
		}
		providerAttempts.WithLabelValues(provider, "ok").Inc()
		return text, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.BackoffBase
	b.MaxInterval = p.opts.BackoffBase * 16

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.opts.MaxAttempts)))
	if err != nil {
		var perr *types.ProviderError
		if !errors.As(err, &perr) {
			perr = &types.ProviderError{Provider: provider, Model: modelName, Err: err}
		}
		return "", perr
	}
	return text, nil
}

func (p *Provider) generate(ctx context.Context, llm model.LLM, provider, modelName string, pr prompt.Prompt) (string, error) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(pr.User, genai.RoleUser)},
		Config:   &genai.GenerateContentConfig{},
	}
	if modelName != llm.Name() {
		req.Model = modelName
	}
	if pr.System != "" {
		req.Config.SystemInstruction = genai.NewContentFromText(pr.System, "system")
	}
	if p.opts.MaxOutputTokens > 0 {
		req.Config.MaxOutputTokens = p.opts.MaxOutputTokens
	}

	var sb strings.Builder
	for resp, err := range llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", classify(provider, modelName, err)
		}
		if resp != nil {
			sb.WriteString(utils.ExtractContentText(resp.Content))
		}
	}

	text, err := utils.ParseReply(sb.String())
	if err != nil {
		return "", &types.ProviderError{Provider: provider, Model: modelName, Err: err, Retryable: true}
	}
	return text, nil
}

// classify wraps adapter errors that are not already ProviderErrors.
func classify(provider, modelName string, err error) error {
	var perr *types.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	out := &types.ProviderError{Provider: provider, Model: modelName, Err: err}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return out
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		out.Retryable = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
		return out
	}
	out.Retryable = true
	return out
}
