package query

type Field int

const (
	FieldCountry Field = iota
	FieldCity
	FieldResort
	FieldHotelCategory
	FieldMeal
	FieldNights
	FieldPrice
	FieldCheckIn
)

func (f Field) String() string {
	switch f {
	case FieldCountry:
		return "country_id"
	case FieldCity:
		return "city_id"
	case FieldResort:
		return "resort_id"
	case FieldHotelCategory:
		return "hotel_category_id"
	case FieldMeal:
		return "meal_id"
	case FieldNights:
		return "nights"
	case FieldPrice:
		return "price"
	case FieldCheckIn:
		return "check_in"
	}
	return "unknown"
}

// Predicate is one conjunct of a tour filter. The concrete variants below
// are the only implementations.
type Predicate interface {
	field() Field
}

// Equals: field = Value.
type Equals struct {
	Field Field
	Value int64
}

// OneOf: field IN Values.
type OneOf struct {
	Field  Field
	Values []int64
}

// Between: Lo <= field <= Hi. Bounds are ints for numeric fields and
// YYYY-MM-DD strings for FieldCheckIn.
type Between struct {
	Field  Field
	Lo, Hi any
}

// AtMost: field <= Value.
type AtMost struct {
	Field Field
	Value int64
}

// MonthIs: calendar month of a date field equals Month (1-12).
type MonthIs struct {
	Field Field
	Month int
}

func (p Equals) field() Field  { return p.Field }
func (p OneOf) field() Field   { return p.Field }
func (p Between) field() Field { return p.Field }
func (p AtMost) field() Field  { return p.Field }
func (p MonthIs) field() Field { return p.Field }

// PredicateSet is an immutable conjunction. The zero value matches
// everything.
type PredicateSet struct {
	preds []Predicate
}

func (s PredicateSet) Predicates() []Predicate {
	out := make([]Predicate, len(s.preds))
	copy(out, s.preds)
	return out
}

func (s PredicateSet) Len() int    { return len(s.preds) }
func (s PredicateSet) Empty() bool { return len(s.preds) == 0 }

// Find returns the first predicate on f.
func (s PredicateSet) Find(f Field) (Predicate, bool) {
	for _, p := range s.preds {
		if p.field() == f {
			return p, true
		}
	}
	return nil, false
}

type Builder struct {
	preds []Predicate
}

func (b *Builder) Add(p Predicate) *Builder {
	b.preds = append(b.preds, p)
	return b
}

func (b *Builder) Build() PredicateSet {
	out := make([]Predicate, len(b.preds))
	copy(out, b.preds)
	return PredicateSet{preds: out}
}
