package pipeline

import "video-insight/schema"

// Categories are the content_quality.category values a model may return.
var Categories = []string{
	"education", "entertainment", "technology", "science", "gaming", "music",
	"news", "lifestyle", "how-to", "business", "sports", "other",
}

// AnalysisSchema returns the structured-output schema. Without community
// the community, age_groups and emotions sections are left out entirely so
// the model cannot fill them for videos with too few comments.
func AnalysisSchema(community bool) *schema.Schema {
	score := func() *schema.Schema { return schema.Int(0, 100) }
	signed := func() *schema.Schema { return schema.Int(-100, 100) }

	props := []schema.Property{
		schema.Prop("summary", schema.String(1, 2000).Describe("Concise summary of the video")),
		schema.Prop("content_quality", schema.Object(
			schema.Prop("educational_value", score()),
			schema.Prop("entertainment_value", score()),
			schema.Prop("information_accuracy", score()),
			schema.Prop("clarity", score()),
			schema.Prop("depth", score()),
			schema.Prop("overall_score", score()),
			schema.Prop("category", schema.Enum(Categories...)),
			schema.Prop("target_audience", schema.String(1, 200)),
		)),
		schema.Prop("sentiment", schema.Object(
			schema.Prop("positive", score()),
			schema.Prop("neutral", score()),
			schema.Prop("negative", score()),
			schema.Prop("overall_score", signed()),
			schema.Prop("intensity", score()),
		).WithSum("ratio_sum", 100, "positive", "neutral", "negative")),
	}

	if community {
		props = append(props,
			schema.Prop("community", schema.Object(
				schema.Prop("politeness", score()),
				schema.Prop("rudeness", score()),
				schema.Prop("kindness", score()),
				schema.Prop("toxicity", score()),
				schema.Prop("constructive", score()),
				schema.Prop("self_centered", score()),
				schema.Prop("off_topic", score()),
				schema.Prop("overall_score", signed()),
			)),
			schema.Prop("age_groups", schema.Object(
				schema.Prop("teens", score()),
				schema.Prop("twenties", score()),
				schema.Prop("thirties", score()),
				schema.Prop("forty_plus", score()),
			).WithSum("ratio_sum", 100, "teens", "twenties", "thirties", "forty_plus")),
			schema.Prop("emotions", schema.Object(
				schema.Prop("joy", score()),
				schema.Prop("trust", score()),
				schema.Prop("fear", score()),
				schema.Prop("surprise", score()),
				schema.Prop("sadness", score()),
				schema.Prop("disgust", score()),
				schema.Prop("anger", score()),
				schema.Prop("anticipation", score()),
			).WithSum("ratio_sum", 100, "joy", "trust", "fear", "surprise", "sadness", "disgust", "anger", "anticipation")),
		)
	}

	props = append(props, schema.Prop("insights", schema.Object(
		schema.Prop("content_summary", schema.String(1, 1000)),
		schema.Prop("audience_reaction", schema.String(1, 1000)),
		schema.Prop("key_insights", schema.Array(schema.String(1, 300), 1, 7)),
		schema.Prop("recommendations", schema.Array(schema.String(1, 300), 1, 7)),
	)))

	return schema.Object(props...)
}
