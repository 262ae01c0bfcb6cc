package app

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	replyNotUnderstood = "Sorry, I could not understand the request. Please rephrase it and try again."
	replyNothingFound  = "Nothing matched your request. Try other dates or a larger budget."
)

// FormatReply renders an outcome as chat text. Prices are shown divided by
// scale, the factor the compiler multiplies budgets by.
func FormatReply(out SearchOutcome, scale float64) string {
	if !out.Understood {
		return replyNotUnderstood
	}
	if len(out.Results) == 0 {
		return replyNothingFound
	}
	if scale <= 0 {
		scale = 1
	}

	var b strings.Builder
	if len(out.Results) == 1 {
		b.WriteString("Found 1 tour:\n")
	} else {
		fmt.Fprintf(&b, "Found %d tours:\n", len(out.Results))
	}
	for i, r := range out.Results {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.HotelName)
		if r.Nights > 0 {
			fmt.Fprintf(&b, ", %d nights", r.Nights)
		}
		b.WriteByte('\n')
		if !r.CheckIn.IsZero() {
			fmt.Fprintf(&b, "   Check-in: %s\n", r.CheckIn.Format("2006-01-02"))
		}
		price := strconv.FormatFloat(float64(r.Price)/scale, 'f', 2, 64)
		fmt.Fprintf(&b, "   Price: %s\n", strings.TrimSpace(price+" "+r.Currency))
		if r.Reason != "" {
			fmt.Fprintf(&b, "   Why: %s\n", r.Reason)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "   %s\n", r.URL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
