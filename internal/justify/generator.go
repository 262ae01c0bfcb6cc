package justify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tour_match/internal/adapters/llm"
	"tour_match/internal/adapters/observability"
	"tour_match/internal/domain"
)

const (
	DefaultWorkers = 3
	temperature    = 0.3
	maxDescription = 1500
	maxSentences   = 3
	maxErrorRunes  = 120
)

// Generator writes a short per-result explanation with the completion model.
type Generator struct {
	completer domain.Completer
	workers   int
}

func NewGenerator(c domain.Completer, workers int) *Generator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Generator{completer: c, workers: workers}
}

// Justify never fails: a model error becomes a "reason unavailable" text.
func (g *Generator) Justify(ctx context.Context, r domain.RankedResult, userText string) string {
	summary := llm.HotelSummary{
		Hotel:       r.HotelName,
		Category:    r.HotelCategoryID,
		MealID:      r.MealID,
		Description: truncateRunes(r.Description, maxDescription),
	}
	out, err := g.completer.Complete(ctx, llm.JustifyMessages(userText, summary), temperature)
	if err != nil {
		log.Warn().Err(err).Int64("tour_id", r.ID).Msg("justification failed")
		return "reason unavailable: " + truncateRunes(err.Error(), maxErrorRunes)
	}
	return Sanitize(out)
}

// JustifyAll fills Reason for every result with at most g.workers calls in
// flight. The returned slice keeps the input order.
func (g *Generator) JustifyAll(ctx context.Context, results []domain.RankedResult, userText string) []domain.RankedResult {
	start := time.Now()
	out := make([]domain.RankedResult, len(results))
	copy(out, results)

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i := range out {
		eg.Go(func() error {
			out[i].Reason = g.Justify(ctx, out[i], userText)
			return nil
		})
	}
	_ = eg.Wait()
	observability.ObserveStage("justify", time.Since(start))
	return out
}

var (
	basedOnLead  = regexp.MustCompile(`(?i)^based on[^.\n]*[.\n]`)
	listMarker   = regexp.MustCompile(`(^|[.!?:]\s+|\n\s*)\d+[.)]\s+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Sanitize drops a leading "Based on ..." clause, removes numbered-list
// markers at line or sentence starts, collapses whitespace and keeps at
// most three sentences.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(basedOnLead.ReplaceAllString(s, ""))
	s = listMarker.ReplaceAllString(s, "${1}")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return firstSentences(s, maxSentences)
}

// firstSentences cuts after the n-th sentence terminator that is followed
// by a space.
func firstSentences(s string, n int) string {
	count := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' {
				count++
				if count == n {
					return s[:i+1]
				}
			}
		}
	}
	return s
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
