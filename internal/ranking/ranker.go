package ranking

import (
	"context"
	"math"
	"sort"
	"strings"

	"tour_match/internal/domain"
)

const (
	DefaultTopK = 5
	// nightsPenalty is subtracted per night of distance from the requested duration.
	nightsPenalty = 0.05
)

type Ranker struct {
	scorer Scorer
}

func NewRanker(s Scorer) *Ranker { return &Ranker{scorer: s} }

// Rank orders candidates by relevance to prefs and keeps the first topK.
// Without preferences the order is check-in date, then price, and every
// score is 0. Ties always fall back to check-in date, then price, then
// input order, so equal inputs give equal outputs.
func (r *Ranker) Rank(ctx context.Context, cands []domain.TourOffer, prefs []string, targetNights, topK int) ([]domain.RankedResult, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	out := make([]domain.RankedResult, len(cands))
	for i, t := range cands {
		out[i] = domain.RankedResult{TourOffer: t}
	}

	prefText := joinPreferences(prefs)
	if prefText == "" {
		sort.SliceStable(out, func(i, j int) bool { return earlierCheaper(out[i], out[j]) })
		return head(out, topK), nil
	}

	scores, err := r.scorer.Score(ctx, prefText, cands)
	if err != nil {
		return nil, err
	}
	for i := range out {
		s := scores[i]
		if targetNights > 0 && out[i].Nights > 0 {
			s -= nightsPenalty * math.Abs(float64(out[i].Nights-targetNights))
		}
		out[i].Score = s
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return earlierCheaper(out[i], out[j])
	})
	return head(out, topK), nil
}

func earlierCheaper(a, b domain.RankedResult) bool {
	if !a.CheckIn.Equal(b.CheckIn) {
		return a.CheckIn.Before(b.CheckIn)
	}
	return a.Price < b.Price
}

func head(rs []domain.RankedResult, n int) []domain.RankedResult {
	if len(rs) > n {
		return rs[:n]
	}
	return rs
}

func joinPreferences(prefs []string) string {
	kept := make([]string, 0, len(prefs))
	for _, p := range prefs {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
