package repositories

import (
	"errors"
	"fmt"

	"video-insight/models"
)

var (
	// ErrNotFound is returned when no row/document matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (url, video_id, comment_id) already exists.
	ErrDuplicate = errors.New("duplicate key")
)

// CheckFields rejects update keys outside models.UpdatableFields.
func CheckFields(fields map[string]any) error {
	for k := range fields {
		if !models.UpdatableFields[k] {
			return fmt.Errorf("field %q is not updatable", k)
		}
	}
	return nil
}

// CheckStatusField rejects anything but the three lifecycle columns.
func CheckStatusField(field string) error {
	switch field {
	case models.FieldProcessingStatus, models.FieldAnalysisStatus, models.FieldAudioStatus:
		return nil
	}
	return fmt.Errorf("field %q is not a status field", field)
}

// StatusStrings converts statuses for driver filters.
func StatusStrings(ss []models.Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
