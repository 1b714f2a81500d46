package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateAndCoerce checks args against the tool's declared parameter
// schema. Models routinely quote numbers and booleans, so when plain
// validation fails the top-level values are nudged toward their declared
// types and validated once more. The returned error is written to be fed
// back to the model.
//
// A schema that fails to compile disables validation for that call rather
// than blocking the tool.
func ValidateAndCoerce(t Tool, args map[string]any) (map[string]any, error) {
	def := t.Definition()
	if len(def.Parameters) == 0 {
		return args, nil
	}
	schema, err := buildSchema(def.Parameters)
	if err != nil {
		return args, nil
	}

	if validateAgainst(schema, args) == nil {
		return args, nil
	}

	fixed := make(map[string]any, len(args))
	types := propertyTypes(def.Parameters)
	for key, val := range args {
		fixed[key] = coerce(val, types[key])
	}
	if verr := validateAgainst(schema, fixed); verr != nil {
		given, _ := json.MarshalIndent(args, "", "  ")
		return nil, fmt.Errorf("tool %q argument validation failed:\n%v\n\nReceived:\n%s",
			def.Name, verr, given)
	}
	return fixed, nil
}

// buildSchema compiles raw schema bytes with a throwaway compiler, since
// jsonschema compilers cache resources by URL.
func buildSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("tools: unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	const id = "mem://tool/schema"
	if err := c.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("tools: add schema resource: %w", err)
	}
	return c.Compile(id)
}

// validateAgainst round-trips args through JSON so the validator sees the
// same value shapes the wire would carry.
func validateAgainst(schema *jsonschema.Schema, args map[string]any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

// propertyTypes reads the declared type of each top-level property.
func propertyTypes(raw json.RawMessage) map[string]string {
	var doc struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	_ = json.Unmarshal(raw, &doc)
	types := make(map[string]string, len(doc.Properties))
	for name, p := range doc.Properties {
		types[name] = p.Type
	}
	return types
}

// coerce converts v toward the declared type when the conversion is
// unambiguous, and returns it untouched otherwise.
func coerce(v any, declared string) any {
	switch declared {
	case "number":
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return n
			}
		}
	case "integer":
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return int64(n)
			}
		}
	case "string":
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64)
		case int64:
			return strconv.FormatInt(n, 10)
		case json.Number:
			return n.String()
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s))); err == nil {
				return b
			}
		}
	}
	return v
}
