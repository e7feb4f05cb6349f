package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	RuleType      = "type"
	RuleRequired  = "required"
	RuleInteger   = "integer"
	RuleMin       = "minimum"
	RuleMax       = "maximum"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RulePattern   = "pattern"
	RuleEnum      = "enum"
	RuleMinItems  = "min_items"
	RuleMaxItems  = "max_items"
	RuleSum       = "sum"
)

type Violation struct {
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Expected string `json:"expected"`
	Got      any    `json:"got"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (expected %s, got %v)", v.Path, v.Rule, v.Expected, v.Got)
}

type Violations []Violation

// Repairable reports whether every violation is a group-sum failure, which
// ratio normalization can fix without asking the model again.
func (vs Violations) Repairable() bool {
	if len(vs) == 0 {
		return false
	}
	for _, v := range vs {
		if v.Rule != RuleSum {
			return false
		}
	}
	return true
}

// Err returns nil for an empty list and a *ValidationError otherwise.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("schema validation failed (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Validate checks a decoded JSON value against s. Values may be produced by
// encoding/json (float64, map[string]any, []any) or built by hand with ints.
func Validate(s *Schema, value any) Violations {
	var vs Violations
	validate(s, value, "", &vs)
	return vs
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func validate(s *Schema, value any, path string, vs *Violations) {
	if s == nil {
		return
	}
	add := func(rule, expected string, got any) {
		p := path
		if p == "" {
			p = "$"
		}
		*vs = append(*vs, Violation{Path: p, Rule: rule, Expected: expected, Got: got})
	}

	switch s.Kind {
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			add(RuleType, "object", typeName(value))
			return
		}
		for _, p := range s.Properties {
			child, present := obj[p.Name]
			if !present || child == nil {
				if !p.Optional {
					*vs = append(*vs, Violation{Path: join(path, p.Name), Rule: RuleRequired, Expected: "present", Got: nil})
				}
				continue
			}
			validate(p.Schema, child, join(path, p.Name), vs)
		}
		for _, rule := range s.Sums {
			sum, ok := sumFields(obj, rule.Fields)
			if !ok {
				// missing or mistyped members are already reported per field
				continue
			}
			if sum != float64(rule.Total) {
				*vs = append(*vs, Violation{
					Path:     join(path, rule.Name),
					Rule:     RuleSum,
					Expected: fmt.Sprintf("%s == %d", strings.Join(rule.Fields, "+"), rule.Total),
					Got:      sum,
				})
			}
		}

	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			if ss, isStrings := value.([]string); isStrings {
				arr = make([]any, len(ss))
				for i, v := range ss {
					arr[i] = v
				}
			} else {
				add(RuleType, "array", typeName(value))
				return
			}
		}
		if s.MinItems != nil && len(arr) < *s.MinItems {
			add(RuleMinItems, fmt.Sprintf(">= %d items", *s.MinItems), len(arr))
		}
		if s.MaxItems != nil && len(arr) > *s.MaxItems {
			add(RuleMaxItems, fmt.Sprintf("<= %d items", *s.MaxItems), len(arr))
		}
		for i, item := range arr {
			validate(s.Items, item, fmt.Sprintf("%s[%d]", path, i), vs)
		}

	case KindString:
		str, ok := value.(string)
		if !ok {
			add(RuleType, "string", typeName(value))
			return
		}
		n := utf8.RuneCountInString(str)
		if s.MinLength != nil && n < *s.MinLength {
			add(RuleMinLength, fmt.Sprintf(">= %d chars", *s.MinLength), n)
		}
		if s.MaxLength != nil && n > *s.MaxLength {
			add(RuleMaxLength, fmt.Sprintf("<= %d chars", *s.MaxLength), n)
		}
		if s.Pattern != nil && !s.Pattern.MatchString(str) {
			add(RulePattern, s.Pattern.String(), str)
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			add(RuleEnum, "one of "+strings.Join(s.Enum, "|"), str)
		}

	case KindInteger, KindNumber:
		f, ok := toFloat(value)
		if !ok {
			add(RuleType, string(s.Kind), typeName(value))
			return
		}
		if s.Kind == KindInteger && f != math.Trunc(f) {
			add(RuleInteger, "integer", f)
		}
		if s.Min != nil && f < *s.Min {
			add(RuleMin, fmt.Sprintf(">= %v", *s.Min), f)
		}
		if s.Max != nil && f > *s.Max {
			add(RuleMax, fmt.Sprintf("<= %v", *s.Max), f)
		}

	case KindBoolean:
		if _, ok := value.(bool); !ok {
			add(RuleType, "boolean", typeName(value))
		}
	}
}

func sumFields(obj map[string]any, fields []string) (float64, bool) {
	var sum float64
	for _, f := range fields {
		n, ok := toFloat(obj[f])
		if !ok {
			return 0, false
		}
		sum += n
	}
	return sum, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
