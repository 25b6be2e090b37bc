package service

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const menuSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "url":   { "type": "string", "format": "uri" },
    "title": { "type": "string", "maxLength": 200 },
    "items": {
      "type": "array",
      "maxItems": 500,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name":        { "type": "string", "minLength": 1 },
          "description": { "type": "string" },
          "price":       { "type": ["number", "string"] }
        }
      }
    }
  }
}`

func newMenuSchema() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(menuSchema))
}

func validateMenu(schema *gojsonschema.Schema, data []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: menu_data is not valid JSON", ErrInvalidInput)
	}
	if !res.Valid() {
		d := []string{}
		for _, e := range res.Errors() {
			d = append(d, e.String())
		}
		return fmt.Errorf("%w: menu_data %s", ErrInvalidInput, strings.Join(d, "; "))
	}
	return nil
}
