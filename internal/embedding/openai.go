package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/bookworm/internal/models"
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	BaseURL string
	Token   string
	Model   string
	// Timeout bounds each embedding call. Zero disables the per-call timeout.
	Timeout time.Duration
	// RequestsPerSecond throttles calls client-side. Zero disables throttling.
	RequestsPerSecond float64
}

// Option configures an embedder.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// OpenAIEmbedder embeds text with langchaingo over an OpenAI-compatible API.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for cfg.Model.
func NewOpenAIEmbedder(cfg OpenAIConfig, opts ...Option) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	token := cfg.Token
	if token == "" {
		// local OpenAI-compatible servers accept any token
		token = "none"
	}
	clientOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return newOpenAIEmbedder(emb, cfg, opts...), nil
}

func newOpenAIEmbedder(emb embeddings.Embedder, cfg OpenAIConfig, opts ...Option) *OpenAIEmbedder {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	e := &OpenAIEmbedder{
		embedder: emb,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   o.logger.With(zap.String("component", "embedder"), zap.String("model", cfg.Model)),
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one call. A response with fewer vectors than inputs, or with an
// empty vector, is ErrEmptyResult.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, models.Upstream("embedding", err)
		}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Warn("embedding call failed", zap.Int("count", len(texts)), zap.Error(err))
		return nil, models.Upstream("embedding", err)
	}
	e.logger.Debug("embedded texts", zap.Int("count", len(texts)), zap.Duration("took", time.Since(start)))

	if len(vecs) < len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrEmptyResult, len(vecs), len(texts))
	}
	for i, v := range vecs[:len(texts)] {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for input %d", models.ErrEmptyResult, i)
		}
	}
	return vecs[:len(texts)], nil
}

// Close is a no-op; the HTTP client needs no cleanup.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
