package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour_match/internal/adapters/llm"
)

func TestExtractStructured(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want map[string]any
		ok   bool
	}{
		{"object in prose", `Here you go: {"a":1}`, map[string]any{"a": float64(1)}, true},
		{"string-encoded object", `"{\"a\":1}"`, map[string]any{"a": float64(1)}, true},
		{"no object", `no data here`, map[string]any{"raw": "no data here"}, false},
		{"escaped underscores", "{\"duration\\_days\": 7}", map[string]any{"duration_days": float64(7)}, true},
		{"multiline fenced", "```json\n{\n  \"country\": \"Turkey\"\n}\n```", map[string]any{"country": "Turkey"}, true},
		{"top-level array", `[1,2]`, map[string]any{"raw": "[1,2]"}, false},
		{"broken object", `{"a": }`, map[string]any{"raw": `{"a": }`}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := llm.ExtractStructured(tc.in)
			_, structured := out.(llm.Structured)
			assert.Equal(t, tc.ok, structured)
			assert.Equal(t, tc.want, out.Map())
		})
	}
}

func TestFirstNumber(t *testing.T) {
	assert.Equal(t, 0.85, llm.FirstNumber("Score: 0.85"))
	assert.Equal(t, 1.0, llm.FirstNumber("1"))
	assert.Equal(t, -0.5, llm.FirstNumber("value -0.5 then 3"))
	assert.Equal(t, 0.0, llm.FirstNumber("no idea"))
	assert.Equal(t, 0.0, llm.FirstNumber(""))
}

func TestPrompts(t *testing.T) {
	msgs := llm.ParseMessages("Turkey in October")
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `"duration_days"`)
	assert.Equal(t, "Turkey in October", msgs[1].Content)

	msgs = llm.JustifyMessages("quiet hotel", llm.HotelSummary{Hotel: "Sunrise", Category: 7, MealID: 5})
	assert.Contains(t, msgs[1].Content, `"hotel":"Sunrise"`)
	assert.Contains(t, msgs[1].Content, "quiet hotel")
}
