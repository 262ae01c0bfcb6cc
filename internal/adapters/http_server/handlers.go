package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tour_match/internal/adapters/llm"
	"tour_match/internal/app"
	"tour_match/internal/domain"
)

const maxBody = 64 << 10

// Searcher is the part of app.Pipeline the handlers use.
type Searcher interface {
	Search(ctx context.Context, userText string) (app.SearchOutcome, error)
}

type Handlers struct {
	S     Searcher
	Scale float64
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/search", h.search)
	s.mux.Post("/v1/reply", h.reply)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps pipeline errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrEmptyRequest):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, llm.ErrRetriesExhausted):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "language model unavailable, try again later")
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Gateway Timeout", "request took too long")
	default:
		log.Error().Err(err).Msg("search failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "search failed")
	}
}

/********** DTOs **********/

type searchRequest struct {
	Text string `json:"text"`
}

type paramsDTO struct {
	CountryID       *int64   `json:"country_id,omitempty"`
	CityID          *int64   `json:"city_id,omitempty"`
	ResortID        *int64   `json:"resort_id,omitempty"`
	HotelCategoryID *int64   `json:"hotel_category_id,omitempty"`
	MealID          *int64   `json:"meal_id,omitempty"`
	MealIDs         []int64  `json:"meal_ids,omitempty"`
	CheckInDate     string   `json:"check_in_date,omitempty"`
	Month           string   `json:"month,omitempty"`
	DurationNights  int      `json:"duration_nights,omitempty"`
	BudgetEUR       float64  `json:"budget_eur,omitempty"`
	Preferences     []string `json:"preferences,omitempty"`
}

type resultDTO struct {
	ID        int64   `json:"id"`
	Hotel     string  `json:"hotel"`
	Nights    int     `json:"nights"`
	Price     int64   `json:"price"`
	Currency  string  `json:"currency,omitempty"`
	CheckIn   string  `json:"check_in,omitempty"`
	URL       string  `json:"url,omitempty"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
	HasDetail bool    `json:"has_description"`
}

type searchResponse struct {
	Understood bool        `json:"understood"`
	Params     *paramsDTO  `json:"params,omitempty"`
	Candidates int         `json:"candidates"`
	Results    []resultDTO `json:"results"`
	Reply      string      `json:"reply"`
}

func toParamsDTO(p domain.QueryParameters) *paramsDTO {
	return &paramsDTO{
		CountryID:       p.CountryID,
		CityID:          p.CityID,
		ResortID:        p.ResortID,
		HotelCategoryID: p.HotelCategoryID,
		MealID:          p.MealID,
		MealIDs:         p.MealIDs,
		CheckInDate:     p.CheckInDate,
		Month:           p.Month,
		DurationNights:  p.DurationNights,
		BudgetEUR:       p.BudgetEUR,
		Preferences:     p.Preferences,
	}
}

func toResultDTO(r domain.RankedResult) resultDTO {
	out := resultDTO{
		ID:        r.ID,
		Hotel:     r.HotelName,
		Nights:    r.Nights,
		Price:     r.Price,
		Currency:  r.Currency,
		URL:       r.URL,
		Score:     r.Score,
		Reason:    r.Reason,
		HasDetail: r.Description != "",
	}
	if !r.CheckIn.IsZero() {
		out.CheckIn = r.CheckIn.Format(time.DateOnly)
	}
	return out
}

/********** handlers **********/

// readText accepts {"text": "..."} or, for text/plain bodies, the raw body.
func readText(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		return string(body), nil
	}
	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", err
	}
	return req.Text, nil
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	out, err := h.S.Search(r.Context(), text)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := searchResponse{
		Understood: out.Understood,
		Candidates: out.Candidates,
		Results:    make([]resultDTO, 0, len(out.Results)),
		Reply:      app.FormatReply(out, h.Scale),
	}
	if out.Understood {
		resp.Params = toParamsDTO(out.Params)
	}
	for _, res := range out.Results {
		resp.Results = append(resp.Results, toResultDTO(res))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("encode search response failed")
	}
}

// reply is the chat adapter: same input, plain-text answer.
func (h *Handlers) reply(w http.ResponseWriter, r *http.Request) {
	text, err := readText(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	out, err := h.S.Search(r.Context(), text)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, app.FormatReply(out, h.Scale))
}
