package shared_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour_match/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LLM_API_KEY", "k")

	c := shared.Load()
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 45*time.Second, c.LLMTimeout)
	assert.Equal(t, 3*time.Second, c.LLMRetryDelay)
	assert.Equal(t, []int{429, 502, 503, 504}, c.LLMRetryStatuses)
	assert.Equal(t, shared.RankEmbedding, c.RankMode)
	assert.Equal(t, 100.0, c.CurrencyScale)
	assert.Equal(t, 5, c.TopK)
	assert.Equal(t, 150, c.CandidateLimit)
	assert.Equal(t, c.LLMBase, c.LLMSimilarityURL)
	assert.Equal(t, []shared.Route{{CountryID: 92, CityID: 2}, {CountryID: 92, CityID: 25}}, c.IngestRoutes)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TOP_K=9\nHTTP_ADDR=:9999\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("HTTP_ADDR", ":7000")
	// values loaded from the file land in the process env; clear them after
	t.Setenv("TOP_K", "")
	require.NoError(t, os.Unsetenv("TOP_K"))

	c := shared.Load()
	assert.Equal(t, ":7000", c.HTTPAddr)
	assert.Equal(t, 9, c.TopK)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("TOP_K", "many")
	t.Setenv("RANK_MODE", "magic")
	t.Setenv("CURRENCY_SCALE", "-1")

	c := shared.Load()
	assert.Equal(t, 5, c.TopK)
	assert.Equal(t, shared.RankEmbedding, c.RankMode)
	assert.Equal(t, 100.0, c.CurrencyScale)
}

func TestParseRoutes(t *testing.T) {
	got, err := shared.ParseRoutes(" 92:2 , 29:25,")
	require.NoError(t, err)
	assert.Equal(t, []shared.Route{{CountryID: 92, CityID: 2}, {CountryID: 29, CityID: 25}}, got)
	assert.Equal(t, "92:2", got[0].String())

	_, err = shared.ParseRoutes("92-2")
	assert.Error(t, err)
	_, err = shared.ParseRoutes("x:2")
	assert.Error(t, err)
}
