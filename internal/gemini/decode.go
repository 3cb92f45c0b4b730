package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// StripFences removes a surrounding markdown code fence, if present. Models
// routinely wrap "JSON only" answers in ```json blocks despite instructions.
func StripFences(s string) string {
	text := strings.TrimSpace(s)

	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}

// MustCompileSchema compiles an embedded JSON schema document. It panics on
// error because the schemas are compile-time constants.
func MustCompileSchema(name, doc string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// Decode strips fences from raw, validates the JSON against schema (when
// non-nil) and unmarshals it into out. Failures are *MalformedResponseError:
// the API call succeeded, the content is unusable, and retrying the same
// prompt is the caller's decision, not the transport's.
func Decode(raw string, schema *jsonschema.Schema, out any) error {
	text := StripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return &MalformedResponseError{Cause: fmt.Errorf("parse JSON: %w", err), Raw: raw}
	}
	if schema != nil {
		if err := schema.Validate(doc); err != nil {
			return &MalformedResponseError{Cause: fmt.Errorf("validate response: %w", err), Raw: raw}
		}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &MalformedResponseError{Cause: fmt.Errorf("decode response: %w", err), Raw: raw}
	}
	return nil
}
