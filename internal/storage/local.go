package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes media under a root directory served at a public
// base URL. Writes go through a temp file and rename so a crashed
// write never leaves a truncated recording at the final key.
type LocalStore struct {
	root          string
	publicBaseURL string
}

func NewLocalStore(root, publicBaseURL string) *LocalStore {
	return &LocalStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *LocalStore) Save(ctx context.Context, eventID uuid.UUID, recordingID string, body io.Reader, contentType string) (string, int64, error) {
	key := objectKey(eventID, recordingID, contentType)
	path := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close media file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("failed to finalize media file: %w", err)
	}

	return s.publicBaseURL + "/" + key, written, nil
}

// objectKey derives the deterministic storage key for a recording.
func objectKey(eventID uuid.UUID, recordingID, contentType string) string {
	return fmt.Sprintf("events/%s/recordings/%s%s", eventID, recordingID, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "audio/mpeg", "audio/mp3":
			return ".mp3"
		case "audio/wav", "audio/x-wav":
			return ".wav"
		case "audio/ogg":
			return ".ogg"
		}
	}
	// Carrier recordings default to mp3.
	return ".mp3"
}
