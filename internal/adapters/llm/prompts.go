package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"tour_match/internal/domain"
)

// ParseMessages asks the model to turn a free-form request into the
// parameter object described by ParamsSchema.
func ParseMessages(userText string) []domain.Message {
	return []domain.Message{
		{Role: "system", Content: parseSystemPrompt},
		{Role: "user", Content: userText},
	}
}

// SimilarityMessages asks for a single 0..1 relevance score of a tour
// description against the traveller's soft preferences.
func SimilarityMessages(preferences, tourText string) []domain.Message {
	return []domain.Message{
		{Role: "system", Content: similaritySystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Preferences: %s\n\nHotel: %s", preferences, tourText)},
	}
}

// HotelSummary is the candidate view shown to the model when writing a
// justification.
type HotelSummary struct {
	Hotel       string `json:"hotel"`
	Category    int64  `json:"category"`
	MealID      int64  `json:"meal_id"`
	Description string `json:"description"`
}

func JustifyMessages(userText string, h HotelSummary) []domain.Message {
	b, _ := json.Marshal(h)
	return []domain.Message{
		{Role: "system", Content: justifySystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Request: %s\n\nHotel: %s", strings.TrimSpace(userText), b)},
	}
}

const similaritySystemPrompt = `You compare a traveller's wishes with a hotel description.
Answer with one number between 0 and 1: 0 means the hotel does not match the wishes at all,
1 means it matches every wish. Output the number only.`

const justifySystemPrompt = `You are a travel assistant. In at most three short sentences explain
why the hotel below fits the traveller's request. Mention concrete facts from the description
(beach line, pool, meals, family features). Do not number the sentences and do not start with
"Based on".`

var parseSystemPrompt = `You are a travel-assistant model that converts a user's free-form query into
structured JSON used to find package tours in a database.

Extract both explicit parameters (country, departure city, resort, hotel category, meal type,
dates, budget) and implicit preferences (quiet hotel, pool, sea view, etc.).

Output exactly one JSON object, no commentary, matching this JSON schema:

` + paramsSchemaJSON + `

Guidelines
- country: destination country ("Turkey", "Египет"). If several are mentioned, pick the main one.
- departure_city: one city of departure ("Moscow", "Екатеринбург").
- resort: region or resort if given ("Antalya", "Хургада").
- hotel_category: text such as "5*", "3 stars", "luxury".
- meal: the meal expression ("all inclusive", "всё включено", "breakfast only").
- Dates: an exact date goes to check_in_date as YYYY-MM-DD. An approximate date fills
  check_in_range: early month is the 1st to 10th, mid month 11th to 20th, end of month 21st to
  the last day. Always fill month as text ("October", "январь").
- duration_days: number of nights.
- budget_eur: approximate total converted to euros (1 EUR = 100 RUB = 1.1 USD).
- adults, kids: number of travellers, default 2 adults and 0 kids.
- preferences: soft wishes that are not database filters
  (["first beach line", "quiet area", "big pool", "kids club"]).

Example
User: "Хочу из Екатеринбурга в Турцию, Анталия, в начале октября, на 7 ночей, всё включено, отель 5 звёзд."
Answer:
{"country": "Турция", "departure_city": "Екатеринбург", "resort": "Анталия", "hotel_category": "5*",
 "meal": "всё включено", "check_in_date": "", "check_in_range": {"from": "2025-10-01", "to": "2025-10-10"},
 "month": "October", "duration_days": 7, "budget_eur": 0, "adults": 2, "kids": 0, "preferences": []}

Rules
- Always output valid JSON only.
- Use Russian or English month names.
- Leave unknown fields as empty strings or zeros.`
