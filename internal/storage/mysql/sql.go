package mysql

// Tour columns shared by every read. hotel_descriptions is optional per
// hotel, hence the LEFT JOIN.
const selectToursSQL = `
SELECT
  t.id,
  t.hotel_id,
  t.hotel_name,
  t.country_id,
  t.city_id,
  t.resort_id,
  t.nights,
  t.price,
  t.currency,
  t.check_in,
  t.hotel_category_id,
  t.meal_id,
  t.url,
  hd.description
FROM tours t
LEFT JOIN hotel_descriptions hd
  ON hd.hotel_id = t.hotel_id
WHERE 1=1`

const orderToursSQL = "\nORDER BY t.price ASC, t.id ASC\nLIMIT ?"

// Dimension tables share the (id, name) shape; resorts also carry country_id.
var selectDimensionSQL = map[string]string{
	"countries":        "SELECT id, name, 0 FROM countries ORDER BY id",
	"cities":           "SELECT id, name, 0 FROM cities ORDER BY id",
	"resorts":          "SELECT id, name, COALESCE(country_id, 0) FROM resorts ORDER BY id",
	"hotel_categories": "SELECT id, name, 0 FROM hotel_categories ORDER BY id",
	"meals":            "SELECT id, name, 0 FROM meals ORDER BY id",
}

var upsertDimensionSQL = map[string]string{
	"countries":        "INSERT INTO countries (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)",
	"cities":           "INSERT INTO cities (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)",
	"resorts":          "INSERT INTO resorts (id, name, country_id) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name), country_id = VALUES(country_id)",
	"hotel_categories": "INSERT INTO hotel_categories (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)",
	"meals":            "INSERT INTO meals (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)",
}

const insertToursPrefix = "INSERT INTO tours\n  (hotel_id, hotel_name, country_id, city_id, resort_id, nights, price, currency, check_in, hotel_category_id, meal_id, url)\nVALUES "

// One offer per (hotel, check-in, nights, meal, departure city); re-ingesting
// refreshes the price.
const insertToursOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  hotel_name        = VALUES(hotel_name),\n" +
	"  price             = VALUES(price),\n" +
	"  currency          = VALUES(currency),\n" +
	"  resort_id         = VALUES(resort_id),\n" +
	"  hotel_category_id = VALUES(hotel_category_id),\n" +
	"  url               = VALUES(url),\n" +
	"  updated_at        = CURRENT_TIMESTAMP\n"

const insertMissSQL = `
INSERT INTO ingest_misses (route, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), seen_at = CURRENT_TIMESTAMP
`
