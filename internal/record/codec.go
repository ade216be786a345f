package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed sequence.schema.json
var sequenceSchemaJSON string

const sequenceSchemaURL = "https://spinlog.schemas.local/sequence.schema.json"

// ErrMalformedSequence is returned when persisted bytes are not a
// well-formed history.
var ErrMalformedSequence = errors.New("malformed record sequence")

var (
	schemaOnce     sync.Once
	sequenceSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(sequenceSchemaURL, strings.NewReader(sequenceSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("load sequence schema: %w", err)
			return
		}
		sequenceSchema, schemaErr = c.Compile(sequenceSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile sequence schema: %w", schemaErr)
		}
	})
	return sequenceSchema, schemaErr
}

// MarshalSequence serializes a newest-first history to its persisted form.
//
// Payloads are opaque to the store, so this is the first place a payload
// that cannot be represented in JSON surfaces. Such failures, including a
// panicking json.Marshaler, come back as an error.
func MarshalSequence(records []Record) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("marshal sequence: payload panicked: %v", r)
		}
	}()
	if records == nil {
		records = []Record{}
	}
	data, err = json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal sequence: %w", err)
	}
	return data, nil
}

// MarshalSequenceIndent is MarshalSequence with two-space indentation, the
// layout used when a history is exported for humans.
func MarshalSequenceIndent(records []Record) ([]byte, error) {
	compact, err := MarshalSequence(records)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indent sequence: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSequence parses a persisted history.
// The bytes must be a JSON array of records with known type tags; any
// other shape yields an error wrapping ErrMalformedSequence.
func DecodeSequence(data []byte) ([]Record, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSequence, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedSequence)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSequence, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSequence, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
