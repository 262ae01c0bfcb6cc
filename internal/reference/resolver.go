package reference

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"tour_match/internal/domain"
)

// Resolver maps free text onto dimension identifiers. It only reads the
// injected maps and is safe for concurrent use.
type Resolver struct {
	maps *Maps
}

func NewResolver(maps *Maps) *Resolver { return &Resolver{maps: maps} }

// Resolve returns the identifier for text in dim. A miss is not an error:
// callers simply drop the constraint.
func (r *Resolver) Resolve(dim domain.Dimension, text string) (int64, bool) {
	return r.maps.Get(dim).lookup(text)
}

// ResolveCategory normalizes star mentions ("5*", "5 stars", "пять звёзд")
// to the bare digit before the lookup.
func (r *Resolver) ResolveCategory(text string) (int64, bool) {
	if d := starDigit(text); d != "" {
		return r.Resolve(domain.DimHotelCategories, d)
	}
	return r.Resolve(domain.DimHotelCategories, text)
}

// ResolveMeals expands text into its synonym groups and returns the union
// of matching meal ids, ascending. Meal filtering is set membership.
func (r *Resolver) ResolveMeals(text string) []int64 {
	q := normalize(text)
	if q == "" {
		return nil
	}
	meals := r.maps.Get(domain.DimMeals)
	seen := map[int64]struct{}{}
	for _, g := range mealGroups {
		if !g.matches(q) {
			continue
		}
		for _, name := range g.names {
			if id, ok := meals.exactID(name); ok {
				seen[id] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		if id, ok := meals.lookup(q); ok {
			return []int64{id}
		}
		return nil
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Enrich fills every absent identifier from its free-text field.
func (r *Resolver) Enrich(p *domain.QueryParameters) {
	fill := func(dst **int64, dim domain.Dimension, text string) {
		if *dst != nil || text == "" {
			return
		}
		if id, ok := r.Resolve(dim, text); ok {
			*dst = &id
		}
	}
	fill(&p.CountryID, domain.DimCountries, p.Country)
	fill(&p.CityID, domain.DimCities, p.DepartureCity)
	fill(&p.ResortID, domain.DimResorts, p.Resort)

	if p.HotelCategoryID == nil && p.HotelCategory != "" {
		if id, ok := r.ResolveCategory(p.HotelCategory); ok {
			p.HotelCategoryID = &id
		}
	}
	if p.MealID == nil && len(p.MealIDs) == 0 && p.Meal != "" {
		p.MealIDs = r.ResolveMeals(p.Meal)
	}
}

/********** hotel categories **********/

var digitStar = regexp.MustCompile(`([1-5])\s*(\*|★|-?\s*star|зв)`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"один": 1, "одна": 1, "одной": 1,
	"два": 2, "две": 2, "двух": 2,
	"три": 3, "трех": 3,
	"четыре": 4, "четырех": 4,
	"пять": 5, "пяти": 5,
}

func starDigit(text string) string {
	t := normalize(text)
	if m := digitStar.FindStringSubmatch(t); m != nil {
		return m[1]
	}
	if len(t) == 1 && t[0] >= '1' && t[0] <= '5' {
		return t
	}
	if !strings.Contains(t, "star") && !strings.Contains(t, "звезд") {
		return ""
	}
	for _, w := range strings.FieldsFunc(t, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if n, ok := numberWords[w]; ok {
			return strconv.Itoa(n)
		}
	}
	return ""
}

/********** meals **********/

type mealGroup struct {
	phrases []string // how users say it
	codes   []string // board codes, matched as whole input only
	names   []string // dimension names the group expands to
}

func (g mealGroup) matches(q string) bool {
	for _, c := range g.codes {
		if q == c {
			return true
		}
	}
	for _, p := range g.phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

var mealGroups = []mealGroup{
	{
		phrases: []string{"all inclusive", "all-inclusive", "все включено", "ультра", "ultra"},
		codes:   []string{"ai", "uai", "all"},
		names: []string{
			"все включено", "all inclusive", "ai",
			"ультра все включено", "ultra all inclusive", "uai",
		},
	},
	{
		phrases: []string{"breakfast", "завтрак"},
		codes:   []string{"bb"},
		names:   []string{"завтрак", "завтраки", "breakfast", "bed and breakfast", "bb"},
	},
	{
		phrases: []string{"half board", "полупансион"},
		codes:   []string{"hb"},
		names:   []string{"полупансион", "half board", "hb"},
	},
	{
		phrases: []string{"full board", "полный пансион"},
		codes:   []string{"fb"},
		names:   []string{"полный пансион", "full board", "fb"},
	},
	{
		phrases: []string{"без питания", "room only", "no meals", "without meals"},
		codes:   []string{"ro"},
		names:   []string{"без питания", "room only", "ro"},
	},
}
