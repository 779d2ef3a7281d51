// Package llm implements the predictor boundary on top of an
// OpenAI-compatible chat endpoint. The quantized input window is sent as a
// numeric sequence and the model is asked for a JSON array of the next
// normalized values; training examples are carried as in-context
// demonstrations since a hosted model cannot be fitted in place.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voqse/debut-plugin-cortex/pkg/predictor"
	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

func init() {
	predictor.RegisterBackend("llm", func(cfg *predictor.Config) (predictor.Predictor, error) {
		return New(cfg)
	})
}

// Predictor talks to an OpenAI-compatible completion endpoint.
type Predictor struct {
	cfg      *predictor.Config
	client   *openai.Client
	retry    *RetryHandler
	logger   Logger
	examples []window.Example
}

// Option configures optional predictor behaviour.
type Option func(*options)

type options struct {
	logger       Logger
	retry        *RetryHandler
	httpClient   *http.Client
	openaiClient *openai.Client
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRetryHandler injects a custom retry handler.
func WithRetryHandler(handler *RetryHandler) Option {
	return func(o *options) { o.retry = handler }
}

// WithHTTPClient replaces the default HTTP transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithOpenAIClient injects a pre-configured SDK client (primarily for tests).
func WithOpenAIClient(client *openai.Client) Option {
	return func(o *options) { o.openaiClient = client }
}

// New constructs an LLM predictor from configuration.
func New(cfg *predictor.Config, opts ...Option) (*Predictor, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}

	var state options
	for _, opt := range opts {
		opt(&state)
	}

	logger := state.logger
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}
	retry := state.retry
	if retry == nil {
		retry = NewRetryHandler(RetryConfig{MaxRetries: cfg.MaxRetries})
	}

	client := state.openaiClient
	if client == nil {
		oaOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			oaOpts = append(oaOpts, option.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			oaOpts = append(oaOpts, option.WithRequestTimeout(cfg.Timeout))
		}
		if state.httpClient != nil {
			oaOpts = append(oaOpts, option.WithHTTPClient(state.httpClient))
		}
		clientVal := openai.NewClient(oaOpts...)
		client = &clientVal
	}

	return &Predictor{
		cfg:    cfg,
		client: client,
		retry:  retry,
		logger: logger,
	}, nil
}

// Train retains an evenly sampled subset of the examples as few-shot context.
func (p *Predictor) Train(ctx context.Context, examples []window.Example) error {
	p.examples = sampleExamples(examples, p.cfg.FewShot)
	p.logger.Infof(ctx, "llm predictor context set | examples=%d kept=%d",
		len(examples), len(p.examples))
	return nil
}

// Predict requests the next normalized values for the input window.
func (p *Predictor) Predict(ctx context.Context, input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, errors.New("llm: input vector is empty")
	}

	messages, err := buildMessages(p.examples, input, p.cfg.OutputSize)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(0),
	}
	params.ResponseFormat = jsonObjectFormat()

	start := time.Now()
	var completion *openai.ChatCompletion
	err = p.retry.Do(ctx, func() error {
		resp, callErr := p.client.Chat.Completions.New(ctx, params)
		if callErr != nil {
			p.logger.Errorf(ctx, "llm completion failed: %v", callErr)
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("llm: completion returned no choices")
	}

	values, err := parsePrediction(completion.Choices[0].Message.Content, p.cfg.OutputSize)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	p.logger.Infof(ctx, "llm prediction | model=%s duration_ms=%d values=%v",
		p.cfg.Model, time.Since(start).Milliseconds(), values)
	return values, nil
}

// Close is a no-op; the SDK holds no persistent connection state to release.
func (p *Predictor) Close() error { return nil }

// sampleExamples keeps at most limit examples spread evenly across the set,
// always including the most recent one.
func sampleExamples(examples []window.Example, limit int) []window.Example {
	if limit <= 0 || len(examples) <= limit {
		out := make([]window.Example, len(examples))
		copy(out, examples)
		return out
	}
	if limit == 1 {
		return []window.Example{examples[len(examples)-1]}
	}
	out := make([]window.Example, 0, limit)
	step := float64(len(examples)-1) / float64(limit-1)
	for i := 0; i < limit; i++ {
		out = append(out, examples[int(float64(i)*step+0.5)])
	}
	out[limit-1] = examples[len(examples)-1]
	return out
}
