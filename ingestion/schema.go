package ingestion

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// itemSchema requires an object carrying some id alias and some title alias.
var itemSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(itemSchemaDocument()))
})

func itemSchemaDocument() map[string]any {
	anyRequired := func(fields []string) map[string]any {
		alts := make([]any, len(fields))
		for i, f := range fields {
			alts[i] = map[string]any{
				"required":   []string{f},
				"properties": map[string]any{f: map[string]any{"type": []string{"string", "number"}, "minLength": 1}},
			}
		}
		return map[string]any{"anyOf": alts}
	}
	return map[string]any{
		"type":  "object",
		"allOf": []any{anyRequired(externalIDAliases), anyRequired(titleAliases)},
	}
}

// validateItem checks a decoded JSON item against the item schema.
func validateItem(item any) error {
	schema, err := itemSchema()
	if err != nil {
		return fmt.Errorf("compiling item schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(item))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIngestion, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: item rejected by schema: %s", ErrIngestion, strings.Join(errs, "; "))
	}
	return nil
}
