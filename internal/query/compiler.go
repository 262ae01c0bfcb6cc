package query

import (
	"strings"
	"time"

	"tour_match/internal/domain"
)

const (
	// DefaultScaleFactor converts a budget in reference currency into the
	// store's integer minor units.
	DefaultScaleFactor = 100
	checkInWindowDays  = 5
	dateLayout         = "2006-01-02"
)

type Compiler struct {
	ScaleFactor float64
}

func NewCompiler(scale float64) *Compiler {
	if scale <= 0 {
		scale = DefaultScaleFactor
	}
	return &Compiler{ScaleFactor: scale}
}

// Compile turns enriched parameters into a conjunctive predicate set.
// Each rule is skipped when its source field is absent.
func (c *Compiler) Compile(p domain.QueryParameters) PredicateSet {
	var b Builder

	if p.CountryID != nil {
		b.Add(Equals{Field: FieldCountry, Value: *p.CountryID})
	}
	if p.CityID != nil {
		b.Add(Equals{Field: FieldCity, Value: *p.CityID})
	}
	if p.ResortID != nil {
		b.Add(Equals{Field: FieldResort, Value: *p.ResortID})
	}
	if p.HotelCategoryID != nil {
		b.Add(Equals{Field: FieldHotelCategory, Value: *p.HotelCategoryID})
	}

	switch {
	case len(p.MealIDs) > 0:
		vals := make([]int64, len(p.MealIDs))
		copy(vals, p.MealIDs)
		b.Add(OneOf{Field: FieldMeal, Values: vals})
	case p.MealID != nil:
		b.Add(Equals{Field: FieldMeal, Value: *p.MealID})
	}

	if d := p.DurationNights; d > 0 {
		b.Add(NightsWindow(d))
	}
	if p.BudgetEUR > 0 {
		b.Add(AtMost{Field: FieldPrice, Value: int64(p.BudgetEUR * c.scale())})
	}

	// date rules: first match wins
	switch {
	case p.CheckInDate != "":
		b.Add(Between{Field: FieldCheckIn, Lo: p.CheckInDate, Hi: AddDays(p.CheckInDate, checkInWindowDays)})
	case p.CheckInRange != nil && p.CheckInRange.From != "" && p.CheckInRange.To != "":
		b.Add(Between{Field: FieldCheckIn, Lo: p.CheckInRange.From, Hi: p.CheckInRange.To})
	case p.Month != "":
		if m := MonthNumber(p.Month); m != 0 {
			b.Add(MonthIs{Field: FieldCheckIn, Month: m})
		}
	}

	return b.Build()
}

func (c *Compiler) scale() float64 {
	if c == nil || c.ScaleFactor <= 0 {
		return DefaultScaleFactor
	}
	return c.ScaleFactor
}

// NightsWindow is the ±1 night tolerance around d, never below one night.
func NightsWindow(d int) Between {
	lo := d - 1
	if lo < 1 {
		lo = 1
	}
	return Between{Field: FieldNights, Lo: lo, Hi: d + 1}
}

// AddDays shifts a YYYY-MM-DD date. Unparseable input comes back unchanged.
func AddDays(date string, days int) string {
	t, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(dateLayout)
}

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,

	"январь": 1, "февраль": 2, "март": 3, "апрель": 4,
	"май": 5, "июнь": 6, "июль": 7, "август": 8,
	"сентябрь": 9, "октябрь": 10, "ноябрь": 11, "декабрь": 12,

	// genitive, as in "в начале октября"
	"января": 1, "февраля": 2, "марта": 3, "апреля": 4,
	"мая": 5, "июня": 6, "июля": 7, "августа": 8,
	"сентября": 9, "октября": 10, "ноября": 11, "декабря": 12,
}

// MonthNumber resolves an English or Russian month name, 0 when unknown.
func MonthNumber(s string) int {
	return months[strings.ToLower(strings.TrimSpace(s))]
}
