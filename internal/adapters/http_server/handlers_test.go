package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "tour_match/internal/adapters/http_server"
	"tour_match/internal/adapters/llm"
	"tour_match/internal/app"
	"tour_match/internal/domain"
)

type fakeSearcher struct {
	out  app.SearchOutcome
	err  error
	text string
}

func (f *fakeSearcher) Search(ctx context.Context, userText string) (app.SearchOutcome, error) {
	f.text = userText
	return f.out, f.err
}

func newServer(t *testing.T, s httpserver.Searcher) *httptest.Server {
	t.Helper()
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{S: s, Scale: 100})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, contentType, strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestSearch_ReturnsResults(t *testing.T) {
	country := int64(92)
	s := &fakeSearcher{out: app.SearchOutcome{
		Understood: true,
		Params:     domain.QueryParameters{CountryID: &country, DurationNights: 7},
		Candidates: 12,
		Results: []domain.RankedResult{{
			TourOffer: domain.TourOffer{ID: 7, HotelName: "Sea Breeze", Nights: 7, Price: 115000, Currency: "EUR",
				CheckIn: time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)},
			Score:  0.91,
			Reason: "On the beach.",
		}},
	}}
	ts := newServer(t, s)

	res := post(t, ts.URL+"/v1/search", "application/json", `{"text":"Turkey, a week"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Turkey, a week", s.text)

	var body struct {
		Understood bool `json:"understood"`
		Params     struct {
			CountryID      int64 `json:"country_id"`
			DurationNights int   `json:"duration_nights"`
		} `json:"params"`
		Candidates int `json:"candidates"`
		Results    []struct {
			ID      int64   `json:"id"`
			Hotel   string  `json:"hotel"`
			CheckIn string  `json:"check_in"`
			Score   float64 `json:"score"`
			Reason  string  `json:"reason"`
		} `json:"results"`
		Reply string `json:"reply"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body.Understood)
	assert.Equal(t, int64(92), body.Params.CountryID)
	assert.Equal(t, 7, body.Params.DurationNights)
	assert.Equal(t, 12, body.Candidates)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Sea Breeze", body.Results[0].Hotel)
	assert.Equal(t, "2025-10-14", body.Results[0].CheckIn)
	assert.Equal(t, "On the beach.", body.Results[0].Reason)
	assert.Contains(t, body.Reply, "Price: 1150.00 EUR")
}

func TestSearch_NotUnderstoodIsNotAnError(t *testing.T) {
	ts := newServer(t, &fakeSearcher{})

	res := post(t, ts.URL+"/v1/search", "application/json", `{"text":"hmm"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"understood":false`)
	assert.Contains(t, string(raw), `"results":[]`)
	assert.NotContains(t, string(raw), `"params"`)
}

func TestReply_PlainText(t *testing.T) {
	s := &fakeSearcher{out: app.SearchOutcome{Understood: true}}
	ts := newServer(t, s)

	res := post(t, ts.URL+"/v1/reply", "text/plain", "Egypt in May")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "text/plain"))
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Nothing matched")
	assert.Equal(t, "Egypt in May", s.text)
}

func TestErrorsMapToProblems(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"bad json", nil, `{"text":`, http.StatusBadRequest},
		{"empty request", app.ErrEmptyRequest, `{"text":""}`, http.StatusBadRequest},
		{"model down", fmt.Errorf("parse request: %w", llm.ErrRetriesExhausted), `{"text":"x"}`, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, `{"text":"x"}`, http.StatusGatewayTimeout},
		{"storage", errors.New("find tours: connection refused"), `{"text":"x"}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newServer(t, &fakeSearcher{err: tc.err})
			res := post(t, ts.URL+"/v1/search", "application/json", tc.body)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))
		})
	}
}

// blockingSearcher waits for the request deadline.
type blockingSearcher struct{}

func (blockingSearcher) Search(ctx context.Context, userText string) (app.SearchOutcome, error) {
	<-ctx.Done()
	return app.SearchOutcome{}, fmt.Errorf("rank candidates: %w", ctx.Err())
}

func TestSearch_RequestDeadlineIsGatewayTimeout(t *testing.T) {
	srv := httpserver.New(50 * time.Millisecond)
	srv.MountHandlers(&httpserver.Handlers{S: blockingSearcher{}, Scale: 100})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)

	res := post(t, ts.URL+"/v1/search", "application/json", `{"text":"Turkey"}`)
	assert.Equal(t, http.StatusGatewayTimeout, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))
}

func TestHealthz(t *testing.T) {
	ts := newServer(t, &fakeSearcher{})
	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
