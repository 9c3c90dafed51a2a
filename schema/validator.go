package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed run_request.schema.json
var runRequestSchemaJSON string

// RunRequest is the validated body of a pipeline run request. Pointer fields
// distinguish "omitted" from a zero value so the caller can apply defaults.
type RunRequest struct {
	ClearExisting  *bool   `json:"clear_existing,omitempty"`
	OnlyUnmatched  *bool   `json:"only_unmatched,omitempty"`
	ResumeFromID   *int64  `json:"resume_from_id,omitempty"`
	ResumeFromKind *string `json:"resume_from_kind,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRunRequest checks a run-request body against the embedded schema
// and returns the decoded request. An empty body is valid and yields an
// all-defaults request.
func ValidateRunRequest(payload json.RawMessage) (*RunRequest, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return &RunRequest{}, nil
	}

	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode request JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize request JSON: %w", err)
	}

	var request RunRequest
	if err := json.Unmarshal(normalized, &request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}

	return &request, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("run_request.schema.json", strings.NewReader(runRequestSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("run_request.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
