// Package seed holds the embedded demo roster and validates roster documents
// against the roster JSON schema before they reach a store.
package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// ErrInvalidRoster wraps schema and decoding failures of a roster document.
var ErrInvalidRoster = errors.New("invalid roster document")

const schemaURL = "roster.schema.json"

//go:embed roster.json
var defaultRoster []byte

//go:embed roster.schema.json
var rosterSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, bytes.NewReader(rosterSchema)); err != nil {
			compileErr = fmt.Errorf("failed to load roster schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Default returns a fresh copy of the embedded demo roster.
func Default() (models.Roster, error) {
	return Parse(defaultRoster)
}

// Parse validates payload against the roster schema and decodes it.
func Parse(payload []byte) (models.Roster, error) {
	validator, err := schema()
	if err != nil {
		return models.Roster{}, err
	}

	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return models.Roster{}, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	if err := validator.Validate(document); err != nil {
		return models.Roster{}, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}

	var roster models.Roster
	if err := json.Unmarshal(payload, &roster); err != nil {
		return models.Roster{}, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	for i := range roster.Modules {
		roster.Modules[i].Normalize()
	}
	for i := range roster.Projects {
		roster.Projects[i].Normalize()
	}
	return roster, nil
}
