package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/models"
)

// OpenAIConfig configures an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	BaseURL     string
	Token       string
	Model       string
	Temperature float64
	// Timeout bounds each generation call. Zero disables the per-call timeout.
	Timeout time.Duration
}

// Option configures a generator.
type Option func(*OpenAIGenerator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *OpenAIGenerator) { g.logger = l }
}

// OpenAIGenerator generates text with langchaingo over an OpenAI-compatible chat API.
type OpenAIGenerator struct {
	client      llms.Model
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOpenAIGenerator creates a generator for cfg.Model.
func NewOpenAIGenerator(cfg OpenAIConfig, opts ...Option) (*OpenAIGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("generation model is required")
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	clientOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return newOpenAIGenerator(client, cfg, opts...), nil
}

func newOpenAIGenerator(client llms.Model, cfg OpenAIConfig, opts ...Option) *OpenAIGenerator {
	g := &OpenAIGenerator{
		client:      client,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "generator"), zap.String("model", cfg.Model))
	return g
}

// Generate sends messages to the model and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", models.Validationf("no messages")
	}
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role, err := chatRole(m.Role)
		if err != nil {
			return "", err
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Warn("generation call failed", zap.Error(err))
		return "", models.Upstream("generation", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: no choices returned", models.ErrEmptyResult)
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank completion", models.ErrEmptyResult)
	}
	g.logger.Debug("generated completion", zap.Int("length", len(text)), zap.Duration("took", time.Since(start)))
	return text, nil
}

func chatRole(r Role) (schema.ChatMessageType, error) {
	switch r {
	case RoleSystem:
		return schema.ChatMessageTypeSystem, nil
	case RoleUser:
		return schema.ChatMessageTypeHuman, nil
	case RoleAssistant:
		return schema.ChatMessageTypeAI, nil
	default:
		return "", models.Validationf("unknown message role %q", r)
	}
}
