// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema used to describe function
// parameters to LLM providers. It marshals directly into a
// Definition's Parameters document.
type Schema struct {
	// Type is the JSON Schema type: "object", "string", "boolean",
	// "integer", "number", or "array".
	Type string `json:"type"`

	// Description explains the parameter to the model. Populated
	// from the desc struct tag.
	Description string `json:"description,omitempty"`

	// Properties maps property names to their schemas. Only set when
	// Type is "object".
	Properties map[string]*Schema `json:"properties,omitempty"`

	// Required lists property names the model must provide. Only set
	// when Type is "object".
	Required []string `json:"required,omitempty"`

	// Default is the value assumed when the property is omitted.
	// Populated from the default struct tag, parsed to the matching
	// Go type so it marshals as the right JSON type.
	Default any `json:"default,omitempty"`

	// Items describes the element type for array schemas.
	Items *Schema `json:"items,omitempty"`
}

// ParamsSchema generates the JSON-Schema parameters document for a
// function definition from a parameter struct: property names come
// from json tags, descriptions from desc tags, required properties
// from required:"true" tags, and defaults from default tags. Fields
// without a json tag (or tagged "-") are excluded; a field with a
// default is never marked required.
//
// Supported field types are string, bool, int, int64, float64, and
// []string, the argument surface LLM function calling works with.
// params must be a struct or pointer to struct.
func ParamsSchema(params any) (json.RawMessage, error) {
	structType := reflect.TypeOf(params)
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("function: params must be a struct, got %T", params)
	}

	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonPropertyName(field)
		if name == "" || name == "-" {
			continue
		}
		property, err := fieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("function: field %s: %w", field.Name, err)
		}
		schema.Properties[name] = property
		if field.Tag.Get("required") == "true" && field.Tag.Get("default") == "" {
			schema.Required = append(schema.Required, name)
		}
	}
	if len(schema.Properties) == 0 {
		schema.Properties = nil
	}

	document, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("function: marshaling schema: %w", err)
	}
	return document, nil
}

// jsonPropertyName extracts the property name from a field's json
// tag. Returns "" when there is no json tag.
func jsonPropertyName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// fieldSchema builds the schema for one struct field from its Go type
// and tags.
func fieldSchema(field reflect.StructField) (*Schema, error) {
	description := field.Tag.Get("desc")

	var schema *Schema
	switch field.Type.Kind() {
	case reflect.String:
		schema = &Schema{Type: "string", Description: description}
	case reflect.Bool:
		schema = &Schema{Type: "boolean", Description: description}
	case reflect.Int, reflect.Int64:
		schema = &Schema{Type: "integer", Description: description}
	case reflect.Float64:
		schema = &Schema{Type: "number", Description: description}
	case reflect.Slice:
		if field.Type.Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported slice element type %s", field.Type.Elem())
		}
		schema = &Schema{Type: "array", Items: &Schema{Type: "string"}, Description: description}
	default:
		return nil, fmt.Errorf("unsupported type %s", field.Type)
	}

	if defaultString := field.Tag.Get("default"); defaultString != "" {
		defaultValue, err := parseDefault(field.Type, defaultString)
		if err != nil {
			return nil, fmt.Errorf("default tag: %w", err)
		}
		schema.Default = defaultValue
	}
	return schema, nil
}

// parseDefault parses a default tag value into the field's Go type so
// it marshals as the correct JSON type (number, boolean, string).
func parseDefault(fieldType reflect.Type, value string) (any, error) {
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Bool:
		return strconv.ParseBool(value)
	case reflect.Int:
		return strconv.Atoi(value)
	case reflect.Int64:
		return strconv.ParseInt(value, 10, 64)
	case reflect.Float64:
		return strconv.ParseFloat(value, 64)
	default:
		return nil, fmt.Errorf("defaults are not supported for %s", fieldType)
	}
}
