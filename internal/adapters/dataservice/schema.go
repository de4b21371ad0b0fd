package dataservice

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed species_row.schema.json
var rowSchemaJSON []byte

var (
	rowSchemaOnce sync.Once
	rowSchema     *gojsonschema.Schema
	rowSchemaErr  error
)

func loadRowSchema() (*gojsonschema.Schema, error) {
	rowSchemaOnce.Do(func() {
		rowSchema, rowSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(rowSchemaJSON))
	})
	return rowSchema, rowSchemaErr
}

// validateRows checks a JSON array of species rows before it is decoded.
func validateRows(body []byte) error {
	schema, err := loadRowSchema()
	if err != nil {
		return fmt.Errorf("%w: schema: %w", ErrInvalidRow, err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}
	return fmt.Errorf("%w: %s", ErrInvalidRow, strings.Join(msgs, "; "))
}
