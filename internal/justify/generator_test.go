package justify_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour_match/internal/domain"
	"tour_match/internal/justify"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{
			"drops based-on lead",
			"Based on your request for a quiet hotel.\nThe hotel sits on the first line. It has a big pool.",
			"The hotel sits on the first line. It has a big pool.",
		},
		{
			"numbered list",
			"1. First beach line.\n2. All inclusive.\n3. Kids club.",
			"First beach line. All inclusive. Kids club.",
		},
		{
			"keeps three sentences",
			"One. Two! Three? Four. Five.",
			"One. Two! Three?",
		},
		{
			"collapses whitespace",
			"  Great   pool \n\n and   spa.  ",
			"Great pool and spa.",
		},
		{
			"decimals survive",
			"Rated 4.5 by guests. Near the beach.",
			"Rated 4.5 by guests. Near the beach.",
		},
		{
			"number ending a sentence is kept",
			"The room sleeps 4. Kids club on site.",
			"The room sleeps 4. Kids club on site.",
		},
		{
			"inline list after a sentence",
			"Good match: 1. Sandy beach. 2) Spa.",
			"Good match: Sandy beach. Spa.",
		},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, justify.Sanitize(tc.in))
		})
	}
}

// slowCompleter answers with the hotel name after a delay that shrinks
// with position, so later items finish first.
type slowCompleter struct {
	inFlight, maxInFlight int32
	fail                  string
}

func (c *slowCompleter) Complete(ctx context.Context, msgs []domain.Message, temperature float64) (string, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		m := atomic.LoadInt32(&c.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&c.maxInFlight, m, n) {
			break
		}
	}

	user := msgs[len(msgs)-1].Content
	var name string
	for _, h := range []string{"H0", "H1", "H2", "H3", "H4"} {
		if strings.Contains(user, `"hotel":"`+h+`"`) {
			name = h
		}
	}
	delay := time.Duration(5-int(name[1]-'0')) * 10 * time.Millisecond
	time.Sleep(delay)
	if name == c.fail {
		return "", errors.New("llm: retries exhausted")
	}
	return "Good fit: " + name + ".", nil
}

func TestJustifyAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	c := &slowCompleter{fail: "H2"}
	g := justify.NewGenerator(c, 2)

	in := make([]domain.RankedResult, 5)
	for i := range in {
		in[i].HotelName = "H" + string(rune('0'+i))
		in[i].ID = int64(i)
	}

	out := g.JustifyAll(context.Background(), in, "quiet beach")
	require.Len(t, out, 5)
	for i, r := range out {
		assert.Equal(t, int64(i), r.ID)
		if i == 2 {
			assert.True(t, strings.HasPrefix(r.Reason, "reason unavailable: "), r.Reason)
			continue
		}
		assert.Equal(t, "Good fit: "+r.HotelName+".", r.Reason)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&c.maxInFlight), int32(2))
	// input untouched
	assert.Empty(t, in[0].Reason)
}

func TestJustify_TruncatesDescription(t *testing.T) {
	var got string
	g := justify.NewGenerator(completerFunc(func(msgs []domain.Message) (string, error) {
		got = msgs[len(msgs)-1].Content
		return "ok", nil
	}), 1)
	r := domain.RankedResult{TourOffer: domain.TourOffer{HotelName: "X", Description: strings.Repeat("ж", 2000)}}

	assert.Equal(t, "ok", g.Justify(context.Background(), r, "pool"))
	assert.Equal(t, 1500, strings.Count(got, "ж"))
}

type completerFunc func(msgs []domain.Message) (string, error)

func (f completerFunc) Complete(ctx context.Context, msgs []domain.Message, temperature float64) (string, error) {
	return f(msgs)
}
