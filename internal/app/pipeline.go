package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tour_match/internal/adapters/llm"
	"tour_match/internal/adapters/observability"
	"tour_match/internal/candidates"
	"tour_match/internal/domain"
	"tour_match/internal/justify"
	"tour_match/internal/query"
	"tour_match/internal/ranking"
	"tour_match/internal/reference"
)

var ErrEmptyRequest = errors.New("empty request")

type Options struct {
	CandidateLimit int
	TopK           int
	CurrencyScale  float64
}

func (o Options) withDefaults() Options {
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = candidates.DefaultLimit
	}
	if o.TopK <= 0 {
		o.TopK = ranking.DefaultTopK
	}
	if o.CurrencyScale <= 0 {
		o.CurrencyScale = query.DefaultScaleFactor
	}
	return o
}

// SearchOutcome is the structured result of one request. Understood is
// false when the model's reply held no usable parameter object.
type SearchOutcome struct {
	Understood bool
	Params     domain.QueryParameters
	Candidates int
	Results    []domain.RankedResult
}

// Pipeline runs one request end to end. It holds no per-request state, so a
// single instance serves concurrent requests.
type Pipeline struct {
	parser    domain.Completer
	resolver  *reference.Resolver
	compiler  *query.Compiler
	filter    *candidates.Filter
	ranker    *ranking.Ranker
	justifier *justify.Generator
	opts      Options
}

func NewPipeline(
	parser domain.Completer,
	resolver *reference.Resolver,
	compiler *query.Compiler,
	filter *candidates.Filter,
	ranker *ranking.Ranker,
	justifier *justify.Generator,
	opts Options,
) *Pipeline {
	return &Pipeline{
		parser:    parser,
		resolver:  resolver,
		compiler:  compiler,
		filter:    filter,
		ranker:    ranker,
		justifier: justifier,
		opts:      opts.withDefaults(),
	}
}

// Process is the chat entry point: request text in, reply text out.
func (p *Pipeline) Process(ctx context.Context, userText string) (string, error) {
	out, err := p.Search(ctx, userText)
	if err != nil {
		return "", err
	}
	return FormatReply(out, p.opts.CurrencyScale), nil
}

// Search returns an error only for an empty request, an exhausted model
// gateway or a storage failure. Unusable model output and empty inventory
// are outcomes.
func (p *Pipeline) Search(ctx context.Context, userText string) (SearchOutcome, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return SearchOutcome{}, ErrEmptyRequest
	}

	params, ok, err := p.parse(ctx, text)
	if err != nil {
		observability.ObserveOutcome("error")
		return SearchOutcome{}, err
	}
	if !ok {
		observability.ObserveOutcome("not_understood")
		return SearchOutcome{}, nil
	}
	out := SearchOutcome{Understood: true, Params: params}

	p.resolver.Enrich(&params)
	out.Params = params
	set := p.compiler.Compile(params)

	start := time.Now()
	cands, err := p.filter.Find(ctx, set, p.opts.CandidateLimit)
	observability.ObserveStage("filter", time.Since(start))
	if err != nil {
		observability.ObserveOutcome("error")
		return SearchOutcome{}, err
	}
	out.Candidates = len(cands)
	observability.ObserveCandidates(len(cands))
	log.Debug().Int("predicates", set.Len()).Int("candidates", len(cands)).Msg("structured filter done")

	if len(cands) == 0 {
		observability.ObserveOutcome("empty")
		return out, nil
	}

	start = time.Now()
	ranked, err := p.ranker.Rank(ctx, cands, params.Preferences, params.DurationNights, p.opts.TopK)
	observability.ObserveStage("rank", time.Since(start))
	if err != nil {
		observability.ObserveOutcome("error")
		return SearchOutcome{}, fmt.Errorf("rank candidates: %w", err)
	}

	out.Results = p.justifier.JustifyAll(ctx, ranked, text)
	observability.ObserveOutcome("results")
	return out, nil
}

// parse asks the model for the parameter object. ok is false when the reply
// could not be read as one.
func (p *Pipeline) parse(ctx context.Context, text string) (domain.QueryParameters, bool, error) {
	start := time.Now()
	raw, err := p.parser.Complete(ctx, llm.ParseMessages(text), 0)
	observability.ObserveStage("parse", time.Since(start))
	if err != nil {
		return domain.QueryParameters{}, false, fmt.Errorf("parse request: %w", err)
	}

	var fields map[string]any
	switch res := llm.ExtractStructured(raw).(type) {
	case llm.Unparsed:
		log.Info().Int("raw_len", len(res.Raw)).Msg("model reply held no parameter object")
		return domain.QueryParameters{}, false, nil
	case llm.Structured:
		fields = res.Fields
	}

	issues, err := llm.ValidateParams(fields)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("parameter schema check skipped")
	case len(issues) > 0:
		log.Warn().Strs("issues", issues).Msg("parameter object does not match schema")
	}

	params := mapParams(fields)
	params.UserText = text
	return params, true, nil
}
