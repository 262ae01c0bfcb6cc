package domain

import "time"

type TourOffer struct {
	ID              int64
	HotelID         int64
	HotelName       string
	CountryID       int64
	CityID          int64
	ResortID        int64
	Nights          int
	Price           int64 // minor currency units
	Currency        string
	CheckIn         time.Time
	HotelCategoryID int64
	MealID          int64
	URL             string
	Description     string // empty when the hotel has no description row
}

// RankedResult lives for one request only.
type RankedResult struct {
	TourOffer
	Score  float64
	Reason string
}

type Dimension string

const (
	DimCountries       Dimension = "countries"
	DimCities          Dimension = "cities"
	DimResorts         Dimension = "resorts"
	DimHotelCategories Dimension = "hotel_categories"
	DimMeals           Dimension = "meals"
)

// Dimensions lists every dimension table backing a reference map.
var Dimensions = []Dimension{DimCountries, DimCities, DimResorts, DimHotelCategories, DimMeals}

type NamedID struct {
	ID       int64
	Name     string
	ParentID int64 // resorts only: owning country, 0 otherwise
}

// TourSearch asks the upstream offers API for the cheapest tours on one
// route. Empty slices and zero values mean "any".
type TourSearch struct {
	CountryID        int64
	CityID           int64
	NightsFrom       int
	NightsTo         int
	Adults           int
	Kids             int
	CheckInFrom      string // YYYY-MM-DD
	CheckInTo        string
	HotelCategoryIDs []int64
	ResortIDs        []int64
}
