package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/flow.schema.json
var flowSchemaJSON string

//go:embed schemas/template.schema.json
var templateSchemaJSON string

var (
	flowSchema     = mustCompileSchema("flow.schema.json", flowSchemaJSON)
	templateSchema = mustCompileSchema("template.schema.json", templateSchemaJSON)
)

func mustCompileSchema(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		panic(fmt.Sprintf("adding schema resource %s: %v", name, err))
	}

	return compiler.MustCompile(name)
}

// ValidateFlowDocument checks a raw persisted flow document against the flow
// schema before it is decoded into domain types. Corrupt documents are
// rejected at load time instead of surfacing as zero-valued flows later.
func ValidateFlowDocument(raw []byte) error {
	return validateDocument(flowSchema, raw)
}

// ValidateTemplateDocument checks a raw persisted template document against
// the template schema.
func ValidateTemplateDocument(raw []byte) error {
	return validateDocument(templateSchema, raw)
}

func validateDocument(schema *jsonschema.Schema, raw []byte) error {
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}

	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("validating document: %w", err)
	}

	return nil
}
