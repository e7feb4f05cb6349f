package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusCompleted, false},
		{Status("bogus"), StatusProcessing, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTranscriptText(t *testing.T) {
	tr := &Transcript{Segments: []TranscriptSegment{
		{Text: " hello "}, {Text: ""}, {Text: "world"},
	}}
	assert.Equal(t, "hello world", tr.Text())

	var nilTr *Transcript
	assert.Equal(t, "", nilTr.Text())
}
