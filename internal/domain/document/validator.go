package document

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "document.schema.json"

const documentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["id", "name", "data"],
	"properties": {
		"id": {"type": "string", "pattern": "^drawing:.+"},
		"name": {"type": "string"},
		"createdAt": {"type": ["string", "null"]},
		"sync": {"type": ["boolean", "null"]},
		"imageBase64": {"type": ["string", "null"]},
		"viewBackgroundColor": {"type": ["string", "null"]},
		"data": {
			"type": "object",
			"required": ["excalidraw"],
			"properties": {
				"excalidraw": {"type": "string"},
				"excalidrawState": {"type": ["string", "null"]},
				"versionFiles": {"type": ["string", "null"]},
				"versionDataState": {"type": ["string", "null"]}
			}
		}
	}
}`

// Validator проверяет документы, пришедшие извне, до записи в хранилище
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator компилирует схему документа
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
	if err != nil {
		return nil, errors.Wrap(err, "parse document schema")
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, errors.Wrap(err, "add document schema")
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, errors.Wrap(err, "compile document schema")
	}

	return &Validator{schema: schema}, nil
}

// MustValidator как NewValidator, но паникует на ошибке компиляции встроенной схемы
func MustValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Decode проверяет raw по схеме и декодирует документ
func (v *Validator) Decode(raw []byte) (*Document, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "invalid json: %v", err)
	}

	if err := v.schema.Validate(inst); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "schema: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "decode: %v", err)
	}

	return &doc, nil
}
