package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"video-insight/models"
)

const systemInstruction = `
You are an analyst for YouTube videos and their comment sections.
You receive a video transcript and a sample of recent viewer comments and
return ONE JSON object that matches the provided JSON schema exactly.

Rules:
- Every score is an integer. Scores named *_score or marked -100..100 may be
  negative, every other score is in the range 0..100.
- Ratio groups MUST add up to exactly 100:
  sentiment.positive + sentiment.neutral + sentiment.negative = 100
  age_groups.teens + twenties + thirties + forty_plus = 100 (when present)
  all eight emotions (joy, trust, fear, surprise, sadness, disgust, anger,
  anticipation) = 100 (when present)
- content_quality.category MUST be one of the allowed values in the schema.
- key_insights and recommendations each contain between 1 and 7 short items.
- Do NOT wrap the JSON in a markdown code block and do not add any text
  outside the JSON object.
`

type promptInput struct {
	Title      string
	Transcript string
	Comments   []models.Comment
	Language   string
	Community  bool
	MaxChars   int
}

func buildPrompt(in promptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write every free-text field (summary, target_audience, insights) in %s.\n", in.Language)
	b.WriteString("Keep JSON keys and category values in English.\n")
	if in.Community {
		b.WriteString("Analyze the comment section: fill community, age_groups and emotions from the comments below.\n")
	} else {
		fmt.Fprintf(&b, "There are only %d comments, too few for a community analysis. Base sentiment and audience_reaction on what is available.\n", len(in.Comments))
	}
	b.WriteString("Remember: every ratio group sums to exactly 100 and every score stays inside its range.\n\n")

	if in.Title != "" {
		fmt.Fprintf(&b, "## Title\n%s\n\n", in.Title)
	}

	b.WriteString("## Transcript\n")
	b.WriteString(truncateRunes(in.Transcript, in.MaxChars))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Comments (%d most recent)\n", len(in.Comments))
	if len(in.Comments) == 0 {
		b.WriteString("(no comments)\n")
	}
	for i, c := range in.Comments {
		text := strings.Join(strings.Fields(c.Text), " ")
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. [%d likes] %s\n", i+1, c.LikeCount, text)
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + " …"
}
