package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tour_match/internal/domain"
)

/********** alias registries (single source of truth) **********/

var paramAliases = map[string][]string{
	"country":           {"country", "destination", "country_name"},
	"departure_city":    {"departure_city", "city", "from_city", "departure"},
	"resort":            {"resort", "resort_name", "region"},
	"hotel_category":    {"hotel_category", "category", "stars"},
	"meal":              {"meal", "meal_type", "board"},
	"country_id":        {"country_id"},
	"city_id":           {"city_id", "departure_city_id"},
	"resort_id":         {"resort_id"},
	"hotel_category_id": {"hotel_category_id", "category_id"},
	"meal_id":           {"meal_id"},
	"meal_ids":          {"meal_ids", "meal_id"},
	"check_in_date":     {"check_in_date", "check_in", "date"},
	"check_in_from":     {"check_in_range.from", "date_from", "check_in_from"},
	"check_in_to":       {"check_in_range.to", "date_to", "check_in_to"},
	"month":             {"month"},
	"duration":          {"duration_days", "duration_nights", "nights", "duration"},
	"budget":            {"budget_eur", "budget", "max_price"},
	"adults":            {"adults"},
	"kids":              {"kids", "children"},
	"preferences":       {"preferences", "wishes"},
}

var tourAliases = map[string][]string{
	"hotel_id":       {"hotelId", "hotel_id", "hotel.id"},
	"hotel_name":     {"hotelName", "hotel_name", "hotel.name"},
	"resort_id":      {"resortId", "resort_id", "resort.id"},
	"nights":         {"nights", "nightCount"},
	"price":          {"price.amount", "price"},
	"currency":       {"price.currency", "currency"},
	"check_in":       {"checkinDate", "checkInDate", "check_in"},
	"hotel_category": {"hotelCategory", "hotelCategoryId", "hotel_category_id"},
	"meal_id":        {"mealId", "meal_id", "meal.id"},
	"url":            {"tourPageUrl", "detailsPageUrl", "url"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "". Numbers are formatted.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" && !isNullWord(s) {
			return s
		}
	}
	return ""
}

// models write these instead of leaving a field out
func isNullWord(s string) bool {
	switch strings.ToLower(s) {
	case "null", "none", "nil", "n/a", "unknown", "any":
		return true
	}
	return false
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstInt64Slice: []int64 from a list of numbers or numeric strings.
func firstInt64Slice(m map[string]any, paths ...string) []int64 {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]int64, 0, len(raw))
		for _, it := range raw {
			if n := firstInt64Flexible(map[string]any{"v": it}, "v"); n != nil {
				out = append(out, *n)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// firstSliceStrings: accept []any with strings, or a comma-separated string.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		var out []string
		switch raw := lookupAny(m, k).(type) {
		case []any:
			for _, it := range raw {
				if s, ok := it.(string); ok {
					if t := strings.TrimSpace(s); t != "" {
						out = append(out, t)
					}
				}
			}
		case string:
			for _, part := range strings.Split(raw, ",") {
				if t := strings.TrimSpace(part); t != "" {
					out = append(out, t)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func intOrZero(p *float64) int {
	if p == nil || *p < 0 {
		return 0
	}
	return int(*p)
}

// positiveID drops the zeros models emit for unknown ids.
func positiveID(p *int64) *int64 {
	if p == nil || *p <= 0 {
		return nil
	}
	return p
}

func positiveIDs(ids []int64) []int64 {
	var out []int64
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

/********** parameter mapper **********/

// mapParams turns the model's loosely typed object into QueryParameters.
// Malformed fields are dropped, never reported.
func mapParams(f map[string]any) domain.QueryParameters {
	p := domain.QueryParameters{
		Country:       firstNonEmptyAlias(f, paramAliases, "country"),
		DepartureCity: firstNonEmptyAlias(f, paramAliases, "departure_city"),
		Resort:        firstNonEmptyAlias(f, paramAliases, "resort"),
		HotelCategory: firstNonEmptyAlias(f, paramAliases, "hotel_category"),
		Meal:          firstNonEmptyAlias(f, paramAliases, "meal"),

		CountryID:       positiveID(firstInt64Flexible(f, paramAliases["country_id"]...)),
		CityID:          positiveID(firstInt64Flexible(f, paramAliases["city_id"]...)),
		ResortID:        positiveID(firstInt64Flexible(f, paramAliases["resort_id"]...)),
		HotelCategoryID: positiveID(firstInt64Flexible(f, paramAliases["hotel_category_id"]...)),

		CheckInDate: firstNonEmptyAlias(f, paramAliases, "check_in_date"),
		Month:       firstNonEmptyAlias(f, paramAliases, "month"),

		DurationNights: intOrZero(getFloatFlexible(f, paramAliases["duration"]...)),
		Adults:         intOrZero(getFloatFlexible(f, paramAliases["adults"]...)),
		Kids:           intOrZero(getFloatFlexible(f, paramAliases["kids"]...)),
		Preferences:    firstSliceStrings(f, paramAliases["preferences"]...),
	}
	if b := getFloatFlexible(f, paramAliases["budget"]...); b != nil && *b > 0 {
		p.BudgetEUR = *b
	}

	// meal_id may be a single number or a list
	if ids := positiveIDs(firstInt64Slice(f, paramAliases["meal_ids"]...)); len(ids) > 0 {
		p.MealIDs = ids
	} else {
		p.MealID = positiveID(firstInt64Flexible(f, paramAliases["meal_id"]...))
	}

	from := firstNonEmptyAlias(f, paramAliases, "check_in_from")
	to := firstNonEmptyAlias(f, paramAliases, "check_in_to")
	if from != "" || to != "" {
		p.CheckInRange = &domain.DateRange{From: from, To: to}
	}
	return p
}

/********** upstream mappers **********/

// mapTour converts one cheapest-tours row. Country and city come from the
// route since the API omits them. ok is false for rows without a hotel.
func mapTour(t map[string]any, countryID, cityID int64) (domain.TourOffer, bool) {
	name := firstNonEmptyAlias(t, tourAliases, "hotel_name")
	if name == "" {
		return domain.TourOffer{}, false
	}
	out := domain.TourOffer{
		HotelName: name,
		CountryID: countryID,
		CityID:    cityID,
		Currency:  firstNonEmptyAlias(t, tourAliases, "currency"),
		URL:       firstNonEmptyAlias(t, tourAliases, "url"),
	}
	if out.Currency == "" {
		out.Currency = "RUB"
	}
	if v := firstInt64Flexible(t, tourAliases["hotel_id"]...); v != nil {
		out.HotelID = *v
	}
	if v := firstInt64Flexible(t, tourAliases["resort_id"]...); v != nil {
		out.ResortID = *v
	}
	if v := firstInt64Flexible(t, tourAliases["hotel_category"]...); v != nil {
		out.HotelCategoryID = *v
	}
	if v := firstInt64Flexible(t, tourAliases["meal_id"]...); v != nil {
		out.MealID = *v
	}
	out.Nights = intOrZero(getFloatFlexible(t, tourAliases["nights"]...))
	if v := getFloatFlexible(t, tourAliases["price"]...); v != nil {
		out.Price = int64(*v)
	}
	if s := firstNonEmptyAlias(t, tourAliases, "check_in"); s != "" {
		d, err := time.Parse("2006-01-02", s[:min(len(s), 10)])
		if err != nil {
			log.Warn().Err(err).Str("hotel", name).Str("check_in", s).Msg("bad check-in date")
		} else {
			out.CheckIn = d
		}
	}
	return out, true
}

// mapDirectory converts directory rows into NamedID, skipping rows without
// an id or a name.
func mapDirectory(rows []map[string]any) []domain.NamedID {
	out := make([]domain.NamedID, 0, len(rows))
	for _, r := range rows {
		id := firstInt64Flexible(r, "id")
		name := lookupStr(r, "name")
		if id == nil || name == "" {
			continue
		}
		n := domain.NamedID{ID: *id, Name: name}
		if parent := firstInt64Flexible(r, "countryId", "country_id"); parent != nil {
			n.ParentID = *parent
		}
		out = append(out, n)
	}
	return out
}
