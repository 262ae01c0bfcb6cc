package candidates

import (
	"context"
	"fmt"
	"time"

	"tour_match/internal/domain"
	"tour_match/internal/query"
)

// DefaultLimit caps how many offers the store returns before ranking.
const DefaultLimit = 150

// TourStore runs a conjunctive filter over the tour inventory, cheapest
// first.
type TourStore interface {
	FindTours(ctx context.Context, set query.PredicateSet, limit int) ([]domain.TourOffer, error)
}

type Filter struct {
	store TourStore
}

func NewFilter(store TourStore) *Filter { return &Filter{store: store} }

// Find returns de-duplicated candidates in store order. Storage failures
// are returned to the caller; an empty result is not an error.
func (f *Filter) Find(ctx context.Context, set query.PredicateSet, limit int) ([]domain.TourOffer, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := f.store.FindTours(ctx, set, limit)
	if err != nil {
		return nil, fmt.Errorf("find tours: %w", err)
	}
	return Dedup(rows), nil
}

type dedupKey struct {
	hotel   string
	checkIn time.Time
}

// Dedup keeps the first offer for each (hotel name, check-in date) pair.
func Dedup(in []domain.TourOffer) []domain.TourOffer {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[dedupKey]struct{}, len(in))
	out := make([]domain.TourOffer, 0, len(in))
	for _, t := range in {
		k := dedupKey{hotel: t.HotelName, checkIn: t.CheckIn.UTC()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
