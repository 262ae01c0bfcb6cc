package llm

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// paramsSchemaJSON describes the parameter object the parse prompt asks
// for. Numeric fields also accept strings since models often quote them.
const paramsSchemaJSON = `{
  "type": "object",
  "properties": {
    "country":        {"type": ["string", "null"]},
    "departure_city": {"type": ["string", "null"]},
    "resort":         {"type": ["string", "null"]},
    "hotel_category": {"type": ["string", "number", "null"]},
    "meal":           {"type": ["string", "null"]},
    "check_in_date":  {"type": ["string", "null"]},
    "check_in_range": {
      "type": ["object", "null"],
      "properties": {
        "from": {"type": ["string", "null"]},
        "to":   {"type": ["string", "null"]}
      }
    },
    "month":          {"type": ["string", "null"]},
    "duration_days":  {"type": ["number", "string", "null"]},
    "budget_eur":     {"type": ["number", "string", "null"]},
    "adults":         {"type": ["number", "string", "null"]},
    "kids":           {"type": ["number", "string", "null"]},
    "preferences":    {"type": ["array", "string", "null"], "items": {"type": "string"}}
  }
}`

var paramsSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(paramsSchemaJSON))
})

// ValidateParams checks extracted fields against the parameter schema and
// returns one message per violation. Violations are advisory: mapping is
// tolerant and unknown or malformed fields are simply dropped.
func ValidateParams(fields map[string]any) ([]string, error) {
	schema, err := paramsSchema()
	if err != nil {
		return nil, fmt.Errorf("compile params schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return nil, fmt.Errorf("validate params: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs, nil
}
