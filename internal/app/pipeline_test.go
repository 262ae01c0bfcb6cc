package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour_match/internal/adapters/llm"
	"tour_match/internal/app"
	"tour_match/internal/candidates"
	"tour_match/internal/domain"
	"tour_match/internal/justify"
	"tour_match/internal/query"
	"tour_match/internal/ranking"
	"tour_match/internal/reference"
)

// ---- fakes ----

type replyCompleter struct {
	reply string
	err   error
	calls atomic.Int32
}

func (c *replyCompleter) Complete(ctx context.Context, msgs []domain.Message, temperature float64) (string, error) {
	c.calls.Add(1)
	return c.reply, c.err
}

type fakeStore struct {
	tours []domain.TourOffer
	err   error
	got   query.PredicateSet
	limit int
	calls int
}

func (s *fakeStore) FindTours(ctx context.Context, set query.PredicateSet, limit int) ([]domain.TourOffer, error) {
	s.calls++
	s.got, s.limit = set, limit
	return s.tours, s.err
}

// beachEmbedder puts every text mentioning a beach on one axis and
// everything else on the other.
type beachEmbedder struct{}

func (beachEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "beach") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func testMaps() *reference.Maps {
	return reference.NewMaps(map[domain.Dimension][]domain.NamedID{
		domain.DimCountries: {{ID: 92, Name: "Turkey"}, {ID: 29, Name: "Egypt"}},
		domain.DimCities:    {{ID: 2, Name: "Moscow"}, {ID: 25, Name: "Kazan"}},
		domain.DimMeals:     {{ID: 1, Name: "BB"}, {ID: 5, Name: "AI"}, {ID: 6, Name: "UAI"}},
	})
}

func newPipeline(parser domain.Completer, store *fakeStore) *app.Pipeline {
	justifier := &replyCompleter{reply: "Right on the beach. Fits the request."}
	return app.NewPipeline(
		parser,
		reference.NewResolver(testMaps()),
		query.NewCompiler(100),
		candidates.NewFilter(store),
		ranking.NewRanker(ranking.NewEmbeddingScorer(beachEmbedder{})),
		justify.NewGenerator(justifier, 2),
		app.Options{CurrencyScale: 100},
	)
}

func day(d int) time.Time { return time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC) }

// ---- tests ----

func TestSearch_EndToEnd(t *testing.T) {
	parser := &replyCompleter{reply: `Sure! {"country_id": 92, "city_id": 2, "duration_days": 7, "budget_eur": 1200,
		"preferences": ["first beach line", "all inclusive"]}`}
	store := &fakeStore{tours: []domain.TourOffer{
		{ID: 3, HotelName: "Cheap Eight", Nights: 8, Price: 90000, CheckIn: day(10)},
		{ID: 1, HotelName: "City Inn", Nights: 7, Price: 110000, CheckIn: day(12), Description: "Downtown, near the bazaar"},
		{ID: 2, HotelName: "Sea Breeze", Nights: 7, Price: 115000, CheckIn: day(14), Description: "First beach line, all inclusive"},
	}}

	out, err := newPipeline(parser, store).Search(context.Background(), "Turkey from Moscow, a week, all inclusive")
	require.NoError(t, err)
	require.True(t, out.Understood)

	p, ok := store.got.Find(query.FieldCountry)
	require.True(t, ok)
	assert.Equal(t, query.Equals{Field: query.FieldCountry, Value: 92}, p)
	p, ok = store.got.Find(query.FieldCity)
	require.True(t, ok)
	assert.Equal(t, query.Equals{Field: query.FieldCity, Value: 2}, p)
	p, ok = store.got.Find(query.FieldNights)
	require.True(t, ok)
	assert.Equal(t, query.Between{Field: query.FieldNights, Lo: 6, Hi: 8}, p)
	p, ok = store.got.Find(query.FieldPrice)
	require.True(t, ok)
	assert.Equal(t, query.AtMost{Field: query.FieldPrice, Value: 120000}, p)
	assert.Equal(t, candidates.DefaultLimit, store.limit)

	require.Len(t, out.Results, 3)
	assert.Equal(t, "Sea Breeze", out.Results[0].HotelName)
	for _, r := range out.Results[1:] {
		assert.Greater(t, out.Results[0].Score, r.Score)
	}
	assert.Equal(t, "City Inn", out.Results[1].HotelName)
	assert.Equal(t, "Cheap Eight", out.Results[2].HotelName)
	assert.Equal(t, "Right on the beach. Fits the request.", out.Results[0].Reason)
	assert.Equal(t, "Turkey from Moscow, a week, all inclusive", out.Params.UserText)
	assert.Equal(t, 3, out.Candidates)
}

func TestSearch_ResolvesFreeText(t *testing.T) {
	parser := &replyCompleter{reply: `{"country": "turkey", "departure_city": "Moscow", "meal": "all inclusive", "month": "октябрь"}`}
	store := &fakeStore{}

	out, err := newPipeline(parser, store).Search(context.Background(), "Турция из Москвы в октябре, всё включено")
	require.NoError(t, err)
	assert.True(t, out.Understood)
	require.NotNil(t, out.Params.CountryID)
	assert.Equal(t, int64(92), *out.Params.CountryID)

	assert.Equal(t, []query.Predicate{
		query.Equals{Field: query.FieldCountry, Value: 92},
		query.Equals{Field: query.FieldCity, Value: 2},
		query.OneOf{Field: query.FieldMeal, Values: []int64{5, 6}},
		query.MonthIs{Field: query.FieldCheckIn, Month: 10},
	}, store.got.Predicates())
}

func TestSearch_UnresolvedTextDropsPredicate(t *testing.T) {
	parser := &replyCompleter{reply: `{"country": "Atlantis"}`}
	store := &fakeStore{}

	out, err := newPipeline(parser, store).Search(context.Background(), "somewhere nice")
	require.NoError(t, err)
	assert.True(t, out.Understood)
	assert.True(t, store.got.Empty())
}

func TestProcess_NotUnderstood(t *testing.T) {
	parser := &replyCompleter{reply: "I am not sure what you mean."}
	store := &fakeStore{}

	reply, err := newPipeline(parser, store).Process(context.Background(), "???")
	require.NoError(t, err)
	assert.Contains(t, reply, "could not understand")
	assert.Zero(t, store.calls)
}

func TestProcess_NothingFound(t *testing.T) {
	parser := &replyCompleter{reply: `{"country_id": 92}`}

	reply, err := newPipeline(parser, &fakeStore{}).Process(context.Background(), "Turkey")
	require.NoError(t, err)
	assert.Contains(t, reply, "Nothing matched")
}

func TestProcess_FormatsShortlist(t *testing.T) {
	parser := &replyCompleter{reply: `{"country_id": 92, "preferences": "beach"}`}
	store := &fakeStore{tours: []domain.TourOffer{
		{ID: 2, HotelName: "Sea Breeze", Nights: 7, Price: 115000, Currency: "EUR", CheckIn: day(14),
			Description: "beach", URL: "https://example.test/t/2"},
	}}

	reply, err := newPipeline(parser, store).Process(context.Background(), "Turkey by the beach")
	require.NoError(t, err)
	assert.Equal(t, "Found 1 tour:\n\n"+
		"1. Sea Breeze, 7 nights\n"+
		"   Check-in: 2025-10-14\n"+
		"   Price: 1150.00 EUR\n"+
		"   Why: Right on the beach. Fits the request.\n"+
		"   https://example.test/t/2", reply)
}

func TestSearch_GatewayExhaustedSurfaces(t *testing.T) {
	parser := &replyCompleter{err: fmt.Errorf("%w after 3 attempts: %w", llm.ErrRetriesExhausted, llm.ErrTransient)}

	_, err := newPipeline(parser, &fakeStore{}).Search(context.Background(), "Turkey")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrRetriesExhausted)
}

func TestSearch_StorageFailureSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	parser := &replyCompleter{reply: `{"country_id": 92}`}

	out, err := newPipeline(parser, &fakeStore{err: boom}).Search(context.Background(), "Turkey")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, out.Results)
}

func TestSearch_EmptyRequest(t *testing.T) {
	parser := &replyCompleter{}
	_, err := newPipeline(parser, &fakeStore{}).Search(context.Background(), "   ")
	assert.ErrorIs(t, err, app.ErrEmptyRequest)
	assert.Zero(t, parser.calls.Load())
}
