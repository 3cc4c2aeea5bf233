package evidence

import "time"

// Artifact is one saved recording.
type Artifact struct {
	ID          int64
	Payload     []byte
	CapturedAt  time.Time
	SizeBytes   int64
	ContentType string
	SavedAt     time.Time
}

// Summary describes an artifact without its payload.
type Summary struct {
	ID          int64
	CapturedAt  time.Time
	SizeBytes   int64
	ContentType string
}

// Summary drops the payload.
func (a Artifact) Summary() Summary {
	return Summary{ID: a.ID, CapturedAt: a.CapturedAt, SizeBytes: a.SizeBytes, ContentType: a.ContentType}
}
