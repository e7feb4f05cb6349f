package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentimentSchema() *Schema {
	return Object(
		Prop("positive", Int(0, 100)),
		Prop("neutral", Int(0, 100)),
		Prop("negative", Int(0, 100)),
		Prop("overall_score", Int(-100, 100)),
	).WithSum("ratio_sum", 100, "positive", "neutral", "negative")
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidate_OK(t *testing.T) {
	s := Object(Prop("sentiment", sentimentSchema()))
	vs := Validate(s, decode(t, `{"sentiment":{"positive":60,"neutral":30,"negative":10,"overall_score":45}}`))
	assert.Empty(t, vs)
	assert.NoError(t, vs.Err())
}

func TestValidate_SumReportedOnceByName(t *testing.T) {
	s := Object(Prop("sentiment", sentimentSchema()))
	vs := Validate(s, decode(t, `{"sentiment":{"positive":60,"neutral":30,"negative":7,"overall_score":45}}`))

	require.Len(t, vs, 1)
	assert.Equal(t, "sentiment.ratio_sum", vs[0].Path)
	assert.Equal(t, RuleSum, vs[0].Rule)
	assert.Equal(t, float64(97), vs[0].Got)
	assert.True(t, vs.Repairable())
}

func TestValidate_RangeIntegerAndRequired(t *testing.T) {
	s := Object(Prop("sentiment", sentimentSchema()))
	vs := Validate(s, decode(t, `{"sentiment":{"positive":60.5,"neutral":30,"negative":9.5,"overall_score":140}}`))

	rules := map[string]string{}
	for _, v := range vs {
		rules[v.Path+"/"+v.Rule] = v.Expected
	}
	assert.Contains(t, rules, "sentiment.positive/"+RuleInteger)
	assert.Contains(t, rules, "sentiment.negative/"+RuleInteger)
	assert.Contains(t, rules, "sentiment.overall_score/"+RuleMax)
	assert.False(t, vs.Repairable())

	vs = Validate(s, decode(t, `{"sentiment":{"positive":50,"neutral":50}}`))
	require.Len(t, vs, 2)
	assert.Equal(t, "sentiment.negative", vs[0].Path)
	assert.Equal(t, RuleRequired, vs[0].Rule)
	assert.Equal(t, "sentiment.overall_score", vs[1].Path)
}

func TestValidate_StringsSlugEnumAndArrays(t *testing.T) {
	s := Object(
		Prop("category", Slug(40)),
		Prop("tone", Enum("calm", "angry")),
		Prop("summary", String(5, 10)),
		Prop("insights", Array(String(1, 0), 1, 2)),
		Opt("note", String(1, 0)),
	)

	vs := Validate(s, decode(t, `{"category":"Tech_Review","tone":"happy","summary":"hi","insights":["a","b","c"]}`))
	got := map[string]bool{}
	for _, v := range vs {
		got[v.Path+"/"+v.Rule] = true
	}
	assert.True(t, got["category/"+RulePattern])
	assert.True(t, got["tone/"+RuleEnum])
	assert.True(t, got["summary/"+RuleMinLength])
	assert.True(t, got["insights/"+RuleMaxItems])
	assert.False(t, got["note/"+RuleRequired])

	vs = Validate(s, decode(t, `{"category":"tech-review","tone":"calm","summary":"hello","insights":["a",""]}`))
	require.Len(t, vs, 1)
	assert.Equal(t, "insights[1]", vs[0].Path)
}

func TestValidate_WrongTypes(t *testing.T) {
	vs := Validate(Object(Prop("a", Int(0, 1))), []any{})
	require.Len(t, vs, 1)
	assert.Equal(t, "$", vs[0].Path)
	assert.Equal(t, "array", vs[0].Got)

	vs = Validate(Object(Prop("a", Int(0, 1))), map[string]any{"a": "1"})
	require.Len(t, vs, 1)
	assert.Equal(t, RuleType, vs[0].Rule)
}

func TestValidationError(t *testing.T) {
	err := Violations{{Path: "a", Rule: RuleMin, Expected: ">= 0", Got: -1}}.Err()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "a: minimum")
}

func TestJSONSchema(t *testing.T) {
	s := Object(
		Prop("score", Int(0, 100)),
		Opt("tag", Slug(20)),
	)
	js := s.JSONSchema()
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, []string{"score"}, js["required"])
	props := js["properties"].(map[string]any)
	score := props["score"].(map[string]any)
	assert.Equal(t, int64(0), score["minimum"])
	assert.Equal(t, int64(100), score["maximum"])
	assert.Equal(t, SlugPattern.String(), props["tag"].(map[string]any)["pattern"])
}
