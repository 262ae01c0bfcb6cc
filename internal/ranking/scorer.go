package ranking

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tour_match/internal/adapters/llm"
	"tour_match/internal/domain"
)

// Scorer rates each candidate against the joined preference text. The
// result has one score per candidate, in candidate order.
type Scorer interface {
	Score(ctx context.Context, preferences string, cands []domain.TourOffer) ([]float64, error)
}

const maxDescriptionRunes = 1000

// CandidateText is the document a candidate is scored as.
func CandidateText(t domain.TourOffer) string {
	return strings.TrimSpace(fmt.Sprintf("%s cat:%d meal:%d %s",
		t.HotelName, t.HotelCategoryID, t.MealID, truncateRunes(t.Description, maxDescriptionRunes)))
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// EmbeddingScorer embeds the preference text and every candidate in one
// batch and scores by cosine similarity.
type EmbeddingScorer struct {
	embedder domain.Embedder
}

func NewEmbeddingScorer(e domain.Embedder) *EmbeddingScorer { return &EmbeddingScorer{embedder: e} }

func (s *EmbeddingScorer) Score(ctx context.Context, preferences string, cands []domain.TourOffer) ([]float64, error) {
	texts := make([]string, 0, len(cands)+1)
	texts = append(texts, preferences)
	for _, t := range cands {
		texts = append(texts, CandidateText(t))
	}
	vecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed candidates: got %d vectors for %d texts", len(vecs), len(texts))
	}
	scores := make([]float64, len(cands))
	for i := range cands {
		scores[i] = Cosine(vecs[0], vecs[i+1])
	}
	return scores, nil
}

// Cosine returns the cosine similarity of a and b, 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// LLMScorer asks the completion model for a 0..1 similarity per candidate.
// A failed call scores 0 for that candidate only.
type LLMScorer struct {
	completer domain.Completer
	workers   int
}

func NewLLMScorer(c domain.Completer, workers int) *LLMScorer {
	if workers <= 0 {
		workers = 4
	}
	return &LLMScorer{completer: c, workers: workers}
}

func (s *LLMScorer) Score(ctx context.Context, preferences string, cands []domain.TourOffer) ([]float64, error) {
	scores := make([]float64, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range cands {
		g.Go(func() error {
			out, err := s.completer.Complete(gctx, llm.SimilarityMessages(preferences, CandidateText(t)), 0)
			if err != nil {
				log.Warn().Err(err).Int64("tour_id", t.ID).Msg("similarity call failed, scoring 0")
				return nil
			}
			scores[i] = llm.FirstNumber(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
