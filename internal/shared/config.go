package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	RequestTimeout time.Duration
	MetricsAddr    string
	MySQLDSN       string

	LLMBase          string
	LLMKey           string
	LLMModel         string
	LLMSimilarityURL string // defaults to LLMBase
	LLMJustifyURL    string // defaults to LLMBase
	LLMTimeout       time.Duration
	LLMRetryDelay    time.Duration
	LLMRetryStatuses []int
	LLMRPS           int

	EmbeddingBase  string
	EmbeddingKey   string
	EmbeddingModel string
	EmbeddingBatch int

	RankMode       string // embedding|llm
	CurrencyScale  float64
	TopK           int
	CandidateLimit int
	JustifyWorkers int
	ScoreWorkers   int
	BatchWorkers   int

	TravelataBase  string
	TravelataToken string
	IngestWorkers  int
	IngestRPS      int
	IngestRoutes   []Route
	IngestNights   [2]int
	IngestDays     int
}

const (
	RankEmbedding = "embedding"
	RankLLM       = "llm"
)

// Load reads the environment, after merging an optional .env file
// (ENV_FILE, default ".env"). Real environment variables win.
func Load() Config {
	loadDotEnv()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid number, using default")
		}
		return def
	}

	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		MetricsAddr:    env("METRICS_ADDR", ""),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/tours?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),

		LLMBase:          env("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMKey:           env("LLM_API_KEY", ""),
		LLMModel:         env("LLM_MODEL", "meta-llama/llama-3.1-8b-instruct"),
		LLMTimeout:       time.Duration(atoi("LLM_TIMEOUT_SECONDS", 45)) * time.Second,
		LLMRetryDelay:    time.Duration(atoi("LLM_RETRY_DELAY_MS", 3000)) * time.Millisecond,
		LLMRetryStatuses: parseInts(env("LLM_RETRY_STATUSES", "429,502,503,504")),
		LLMRPS:           atoi("LLM_RPS", 2),

		EmbeddingBase:  env("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
		EmbeddingKey:   env("EMBEDDING_API_KEY", ""),
		EmbeddingModel: env("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingBatch: atoi("EMBEDDING_BATCH", 64),

		RankMode:       strings.ToLower(env("RANK_MODE", RankEmbedding)),
		CurrencyScale:  atof("CURRENCY_SCALE", 100),
		TopK:           atoi("TOP_K", 5),
		CandidateLimit: atoi("CANDIDATE_LIMIT", 150),
		JustifyWorkers: atoi("JUSTIFY_WORKERS", 3),
		ScoreWorkers:   atoi("SCORE_WORKERS", 2),
		BatchWorkers:   atoi("BATCH_WORKERS", 4),

		TravelataBase:  env("TRAVELATA_BASE_URL", "https://api-gateway.travelata.ru"),
		TravelataToken: env("TRAVELATA_TOKEN", ""),
		IngestWorkers:  atoi("INGEST_WORKERS", 4),
		IngestRPS:      atoi("INGEST_RPS", 5),
		IngestNights:   [2]int{atoi("INGEST_NIGHTS_FROM", 5), atoi("INGEST_NIGHTS_TO", 14)},
		IngestDays:     atoi("INGEST_DAYS_AHEAD", 30),
	}
	c.LLMSimilarityURL = env("LLM_SIMILARITY_URL", c.LLMBase)
	c.LLMJustifyURL = env("LLM_JUSTIFY_URL", c.LLMBase)

	routes, err := ParseRoutes(env("INGEST_ROUTES", "92:2,92:25"))
	if err != nil {
		log.Warn().Err(err).Msg("invalid INGEST_ROUTES, ingestion disabled")
	}
	c.IngestRoutes = routes

	if c.RankMode != RankEmbedding && c.RankMode != RankLLM {
		log.Warn().Str("rank_mode", c.RankMode).Msg("unknown RANK_MODE, using embedding")
		c.RankMode = RankEmbedding
	}
	if c.LLMKey == "" {
		log.Warn().Msg("LLM_API_KEY is empty")
	}
	return c
}

func loadDotEnv() {
	path := env("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to load env file")
		return
	}
	log.Debug().Str("path", path).Msg("env file loaded")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseInts(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Route is one (destination country, departure city) pair to ingest.
type Route struct {
	CountryID int64
	CityID    int64
}

func (r Route) String() string { return fmt.Sprintf("%d:%d", r.CountryID, r.CityID) }

// ParseRoutes parses "country:city" pairs separated by commas.
func ParseRoutes(s string) ([]Route, error) {
	var out []Route
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		country, city, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("route %q: want country:city", part)
		}
		cid, err := strconv.ParseInt(strings.TrimSpace(country), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", part, err)
		}
		dep, err := strconv.ParseInt(strings.TrimSpace(city), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", part, err)
		}
		out = append(out, Route{CountryID: cid, CityID: dep})
	}
	return out, nil
}
