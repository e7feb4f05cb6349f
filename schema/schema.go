// Package schema describes the structured output expected from an LLM and
// checks decoded JSON against it.
package schema

import "regexp"

type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

// SlugPattern matches machine identifiers: lowercase alphanumerics joined by single hyphens.
var SlugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Schema struct {
	Kind        Kind
	Description string

	Min *float64
	Max *float64

	MinLength *int
	MaxLength *int
	Pattern   *regexp.Regexp
	Enum      []string

	Items    *Schema
	MinItems *int
	MaxItems *int

	Properties []Property
	Sums       []SumRule
}

type Property struct {
	Name     string
	Schema   *Schema
	Optional bool
}

// SumRule requires the named integer fields of an object to add up to Total.
// A failed rule is reported once under <object path>.<Name>.
type SumRule struct {
	Name   string
	Fields []string
	Total  int
}

// Property returns the named child schema, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil {
		return nil
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func Int(min, max int) *Schema {
	return &Schema{Kind: KindInteger, Min: ptr(float64(min)), Max: ptr(float64(max))}
}

func Number(min, max float64) *Schema {
	return &Schema{Kind: KindNumber, Min: ptr(min), Max: ptr(max)}
}

func Bool() *Schema { return &Schema{Kind: KindBoolean} }

func String(minLen, maxLen int) *Schema {
	s := &Schema{Kind: KindString, MinLength: ptr(minLen)}
	if maxLen > 0 {
		s.MaxLength = ptr(maxLen)
	}
	return s
}

func Slug(maxLen int) *Schema {
	s := String(1, maxLen)
	s.Pattern = SlugPattern
	return s
}

func Enum(values ...string) *Schema {
	return &Schema{Kind: KindString, Enum: values}
}

func Array(items *Schema, minItems, maxItems int) *Schema {
	s := &Schema{Kind: KindArray, Items: items, MinItems: ptr(minItems)}
	if maxItems > 0 {
		s.MaxItems = ptr(maxItems)
	}
	return s
}

func Object(props ...Property) *Schema {
	return &Schema{Kind: KindObject, Properties: props}
}

func Prop(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

func Opt(name string, s *Schema) Property { return Property{Name: name, Schema: s, Optional: true} }

// WithSum adds a group-sum rule and returns s.
func (s *Schema) WithSum(name string, total int, fields ...string) *Schema {
	s.Sums = append(s.Sums, SumRule{Name: name, Fields: fields, Total: total})
	return s
}

// Describe sets the description sent to providers and returns s.
func (s *Schema) Describe(d string) *Schema {
	s.Description = d
	return s
}

// JSONSchema renders s as a JSON-schema document for structured output APIs.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": string(s.Kind)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Min != nil {
		out["minimum"] = jsonNumber(s.Kind, *s.Min)
	}
	if s.Max != nil {
		out["maximum"] = jsonNumber(s.Kind, *s.Max)
	}
	if s.MinLength != nil {
		out["minLength"] = *s.MinLength
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if s.Pattern != nil {
		out["pattern"] = s.Pattern.String()
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if s.MinItems != nil {
		out["minItems"] = *s.MinItems
	}
	if s.MaxItems != nil {
		out["maxItems"] = *s.MaxItems
	}
	if s.Kind == KindObject {
		props := make(map[string]any, len(s.Properties))
		required := make([]string, 0, len(s.Properties))
		order := make([]string, 0, len(s.Properties))
		for _, p := range s.Properties {
			props[p.Name] = p.Schema.JSONSchema()
			order = append(order, p.Name)
			if !p.Optional {
				required = append(required, p.Name)
			}
		}
		out["properties"] = props
		out["required"] = required
		// Gemini honours property ordering when generating.
		out["propertyOrdering"] = order
	}
	return out
}

func jsonNumber(k Kind, v float64) any {
	if k == KindInteger {
		return int64(v)
	}
	return v
}
