package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the analysis id does not exist.
	ErrNotFound = errors.New("analysis not found")
	// ErrNotReady is returned when audio is requested before the analysis has a summary.
	ErrNotReady = errors.New("analysis has no completed summary")
	// ErrAudioNotReady is returned when a signed URL is requested before audio exists.
	ErrAudioNotReady = errors.New("audio has not been generated")
	// ErrNoTranscript is the message stored on records whose video has no captions.
	ErrNoTranscript = errors.New("no transcript available")
)

const (
	StageAnalysis = "analysis"
	StageAudio    = "audio"
)

// RunError means the run failed after the record was claimed. The record has
// been moved to failed (best-effort), so the failure is visible to pollers.
type RunError struct {
	AnalysisID string
	Stage      string
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s run for %s failed: %v", e.Stage, e.AnalysisID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
