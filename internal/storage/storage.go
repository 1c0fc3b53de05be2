package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// MediaStore persists recording audio durably. Keys are derived from
// (eventID, recordingID), so re-delivery of the same recording
// overwrites in place instead of duplicating.
type MediaStore interface {
	// Save writes the media and returns its public URL.
	Save(ctx context.Context, eventID uuid.UUID, recordingID string, body io.Reader, contentType string) (string, int64, error)
}
