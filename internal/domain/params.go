package domain

type DateRange struct {
	From string
	To   string
}

// QueryParameters is the structured form of one travel request.
// A non-nil *ID field always takes priority over its free-text counterpart.
type QueryParameters struct {
	Country       string
	DepartureCity string
	Resort        string
	HotelCategory string
	Meal          string

	CountryID       *int64
	CityID          *int64
	ResortID        *int64
	HotelCategoryID *int64
	MealID          *int64
	MealIDs         []int64

	CheckInDate  string // YYYY-MM-DD
	CheckInRange *DateRange
	Month        string

	DurationNights int
	BudgetEUR      float64
	Adults         int
	Kids           int

	Preferences []string
	UserText    string
}
