package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"tour_match/internal/adapters/observability"
	"tour_match/internal/domain"
)

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// Embedder implements domain.Embedder over an OpenAI-compatible
// embeddings endpoint.
type Embedder struct {
	embedder embeddings.Embedder
}

var _ domain.Embedder = (*Embedder)(nil)

func New(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("embedding base URL and model are required")
	}
	token := cfg.APIKey
	if token == "" {
		// local OpenAI-compatible servers accept any token
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	e, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{embedder: e}, nil
}

// EmbedTexts returns one vector per text, in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	status := 200
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("embedding", "embeddings", status, time.Since(start))
	if err != nil {
		log.Error().Err(err).Int("count", len(texts)).Msg("embedding request failed")
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}
