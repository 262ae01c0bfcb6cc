package travelata

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tour_match/internal/adapters/observability"
	"tour_match/internal/domain"
)

type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, rps int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("API token is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var _ domain.OfferSource = (*Client)(nil)

// ---- Public API ----

var directoryPaths = map[domain.Dimension]string{
	domain.DimCountries:       "/directory/countries",
	domain.DimCities:          "/directory/departureCities",
	domain.DimResorts:         "/directory/resorts",
	domain.DimHotelCategories: "/directory/hotelCategories",
	domain.DimMeals:           "/directory/meals",
}

type envelope struct {
	Data []map[string]any `json:"data"`
}

// Directory returns the raw rows of one reference directory.
func (c *Client) Directory(ctx context.Context, dim domain.Dimension) ([]map[string]any, error) {
	p, ok := directoryPaths[dim]
	if !ok {
		return nil, fmt.Errorf("directory %q: %w", dim, domain.ErrUnknownDimension)
	}
	var out envelope
	if err := c.get(ctx, "directory", c.base+p, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CheapestTours returns the cheapest offer per hotel and date for a route.
func (c *Client) CheapestTours(ctx context.Context, q domain.TourSearch) ([]map[string]any, error) {
	var out envelope
	if err := c.get(ctx, "cheapest_tours", c.base+"/statistic/cheapestTours?"+tourQuery(q).Encode(), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func tourQuery(q domain.TourSearch) url.Values {
	v := url.Values{}
	v.Set("countries[]", strconv.FormatInt(q.CountryID, 10))
	v.Set("departureCity", strconv.FormatInt(q.CityID, 10))
	if q.NightsFrom > 0 {
		v.Set("nightRange[from]", strconv.Itoa(q.NightsFrom))
	}
	if q.NightsTo > 0 {
		v.Set("nightRange[to]", strconv.Itoa(q.NightsTo))
	}
	adults := q.Adults
	if adults <= 0 {
		adults = 2
	}
	v.Set("touristGroup[adults]", strconv.Itoa(adults))
	v.Set("touristGroup[kids]", strconv.Itoa(q.Kids))
	v.Set("touristGroup[infants]", "0")
	if q.CheckInFrom != "" {
		v.Set("checkInDateRange[from]", q.CheckInFrom)
	}
	if q.CheckInTo != "" {
		v.Set("checkInDateRange[to]", q.CheckInTo)
	}
	for _, id := range q.HotelCategoryIDs {
		v.Add("hotelCategories[]", strconv.FormatInt(id, 10))
	}
	for _, id := range q.ResortIDs {
		v.Add("resorts[]", strconv.FormatInt(id, 10))
	}
	return v
}

// ---- Internals ----

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Token "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tour-match-ingestor/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("travelata", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("travelata", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
