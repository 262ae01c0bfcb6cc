package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"tour_match/internal/adapters/embedding"
	"tour_match/internal/adapters/llm"
	"tour_match/internal/candidates"
	"tour_match/internal/domain"
	"tour_match/internal/justify"
	"tour_match/internal/query"
	"tour_match/internal/ranking"
	"tour_match/internal/reference"
	"tour_match/internal/shared"
)

// Store is what the pipeline needs from persistence.
type Store interface {
	domain.DimensionSource
	candidates.TourStore
}

// BuildPipeline loads the reference maps and wires every stage from cfg.
func BuildPipeline(ctx context.Context, cfg shared.Config, store Store) (*Pipeline, error) {
	maps, err := reference.Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load reference maps: %w", err)
	}

	opts := []llm.Option{
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithDelay(llm.FixedDelay(cfg.LLMRetryDelay)),
		llm.WithRPS(cfg.LLMRPS),
	}
	if len(cfg.LLMRetryStatuses) > 0 {
		opts = append(opts, llm.WithRetryStatuses(cfg.LLMRetryStatuses...))
	}
	gateway := func(base string) (*llm.Client, error) {
		return llm.New(base, cfg.LLMKey, cfg.LLMModel, opts...)
	}
	parser, err := gateway(cfg.LLMBase)
	if err != nil {
		return nil, fmt.Errorf("parse gateway: %w", err)
	}
	justifier, err := gateway(cfg.LLMJustifyURL)
	if err != nil {
		return nil, fmt.Errorf("justify gateway: %w", err)
	}

	var scorer ranking.Scorer
	switch cfg.RankMode {
	case shared.RankLLM:
		sim, err := gateway(cfg.LLMSimilarityURL)
		if err != nil {
			return nil, fmt.Errorf("similarity gateway: %w", err)
		}
		scorer = ranking.NewLLMScorer(sim, cfg.ScoreWorkers)
	default:
		emb, err := embedding.New(embedding.Config{
			BaseURL:   cfg.EmbeddingBase,
			APIKey:    cfg.EmbeddingKey,
			Model:     cfg.EmbeddingModel,
			BatchSize: cfg.EmbeddingBatch,
		})
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		scorer = ranking.NewEmbeddingScorer(emb)
	}
	log.Info().Str("rank_mode", cfg.RankMode).Str("model", cfg.LLMModel).Msg("pipeline wired")

	return NewPipeline(
		parser,
		reference.NewResolver(maps),
		query.NewCompiler(cfg.CurrencyScale),
		candidates.NewFilter(store),
		ranking.NewRanker(scorer),
		justify.NewGenerator(justifier, cfg.JustifyWorkers),
		Options{
			CandidateLimit: cfg.CandidateLimit,
			TopK:           cfg.TopK,
			CurrencyScale:  cfg.CurrencyScale,
		},
	), nil
}
