// Package llm adapts external LLM APIs into a ticket classifier.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// Default values for the classifier.
const (
	defaultClassifierMaxRetries     = 2
	defaultClassifierInitialBackoff = 500 * time.Millisecond
	defaultClassifierMaxBackoff     = 5 * time.Second
	defaultClassifierMaxTokens      = 1024
)

// ClassifierConfig controls retries and pacing of outbound classifier calls.
type ClassifierConfig struct {
	// MaxRetries is the number of extra attempts for transient transport errors.
	MaxRetries int
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration
	// RateLimitRPS limits calls per second across all tickets. Zero disables limiting.
	RateLimitRPS float64
	// RateLimitBurst is the token bucket size.
	RateLimitBurst int
	// MaxTokens caps the model's response length.
	MaxTokens int
}

// Classification is a successful classifier call.
type Classification struct {
	Result       domain.ClassificationResult
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	Attempts     int
}

// Classifier turns ticket text into a ClassificationResult through a Provider.
type Classifier struct {
	provider Provider
	cfg      ClassifierConfig
	limiter  *rate.Limiter
}

// NewClassifier creates a Classifier. Zero-valued config fields take defaults;
// a negative MaxRetries disables retries.
func NewClassifier(provider Provider, cfg ClassifierConfig) *Classifier {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultClassifierMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultClassifierInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultClassifierMaxBackoff
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultClassifierMaxTokens
	}

	c := &Classifier{provider: provider, cfg: cfg}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return c
}

// Provider returns the name of the underlying provider.
func (c *Classifier) Provider() string {
	return c.provider.Name()
}

// Model returns the model identifier of the underlying provider.
func (c *Classifier) Model() string {
	return c.provider.Model()
}

// Classify asks the provider to classify a ticket. Exactly one of the return
// values is non-nil. Transient transport errors are retried with exponential
// backoff up to MaxRetries times; unparseable output is not retried.
func (c *Classifier) Classify(ctx context.Context, title, description string) (*Classification, *ClassifierFailure) {
	system, user := BuildClassificationPrompt(title, description)
	req := CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    c.cfg.MaxTokens,
		JSONMode:     true,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxRetries)), ctx)

	var resp *CompletionResponse
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}

		r, err := c.provider.Complete(ctx, req)
		if err != nil {
			if isTransientError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}, policy)
	if err != nil {
		return nil, failureFromError(err, attempts)
	}

	result, err := ParseClassification(resp.Content)
	if err != nil {
		return nil, failureFromError(err, attempts)
	}

	model := resp.Model
	if model == "" {
		model = c.provider.Model()
	}
	return &Classification{
		Result:       *result,
		Provider:     c.provider.Name(),
		Model:        model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Attempts:     attempts,
	}, nil
}
