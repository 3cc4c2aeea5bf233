package notifications

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Event identifies a notice.
type Event string

const (
	EventSOSDispatched       Event = "sos_dispatched"
	EventContactsMissing     Event = "contacts_missing"
	EventEvidenceSaved       Event = "evidence_saved"
	EventPersistenceFailed   Event = "persistence_failed"
	EventEvidenceShared      Event = "evidence_shared"
	EventEvidenceDownloaded  Event = "evidence_downloaded"
	EventShareFailed         Event = "share_failed"
	EventDownloadFailed      Event = "download_failed"
	EventLocationUnavailable Event = "location_unavailable"
	EventCameraUnavailable   Event = "camera_unavailable"
	EventUploadCompleted     Event = "upload_completed"
	EventUploadFailed        Event = "upload_failed"
	EventTest                Event = "test"
)

// Payload carries event details. Keys are documented next to each event in Format.
type Payload map[string]any

// Message is a rendered notice.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

// ContactsPrompt is the notice shown when an SOS is attempted without contacts.
const ContactsPrompt = "⚠️ Please add an SOS Contact first!"

// Format renders event. Unknown events report false.
func Format(event Event, payload Payload) (Message, bool) {
	switch event {
	case EventSOSDispatched:
		// status, targets
		body := payload.text("status", "SOS SENT!")
		if message := payload.text("message", ""); message != "" {
			body = body + "\n" + message
		}
		return Message{Title: "Vanguard - SOS Sent", Body: "🚨 " + body, Tags: []string{"vanguard", "sos", "sent"}, Priority: "urgent"}, true
	case EventContactsMissing:
		return Message{Title: "Vanguard - No Contacts", Body: ContactsPrompt, Tags: []string{"vanguard", "contacts", "warning"}, Priority: "high"}, true
	case EventEvidenceSaved:
		// id, size_bytes
		body := fmt.Sprintf("🎥 Recording saved to gallery (#%v", payload["id"])
		if size, ok := payload["size_bytes"].(int64); ok {
			body += ", " + humanize.Bytes(uint64(size))
		}
		return Message{Title: "Vanguard - Evidence Saved", Body: body + ")", Tags: []string{"vanguard", "evidence", "saved"}}, true
	case EventPersistenceFailed:
		// error
		return Message{
			Title:    "Vanguard - Evidence Not Saved",
			Body:     "❌ Could not save the recording to the gallery: " + payload.text("error", "unknown error"),
			Tags:     []string{"vanguard", "evidence", "error"},
			Priority: "high",
		}, true
	case EventEvidenceShared:
		// name
		return Message{Title: "Vanguard - Evidence Shared", Body: "📤 Shared " + payload.text("name", "recording"), Tags: []string{"vanguard", "evidence", "shared"}}, true
	case EventEvidenceDownloaded:
		// path, kept
		body := "Video downloaded to " + payload.text("path", "your downloads folder") + "."
		if kept, _ := payload["kept"].(bool); kept {
			body += " It was also kept in your gallery."
		}
		return Message{Title: "Vanguard - Video Downloaded", Body: "💾 " + body, Tags: []string{"vanguard", "evidence", "download"}}, true
	case EventShareFailed:
		// error
		return Message{
			Title: "Vanguard - Share Failed",
			Body:  "Sharing failed (" + payload.text("error", "unknown error") + "); saving a copy instead.",
			Tags:  []string{"vanguard", "share", "fallback"},
		}, true
	case EventDownloadFailed:
		// error
		return Message{
			Title:    "Vanguard - Download Failed",
			Body:     "❌ Could not save a copy of the recording: " + payload.text("error", "unknown error"),
			Tags:     []string{"vanguard", "download", "error"},
			Priority: "high",
		}, true
	case EventLocationUnavailable:
		// status
		return Message{
			Title: "Vanguard - Location Unavailable",
			Body:  "📍 " + payload.text("status", "Location unavailable") + ": alerts will not include a map link.",
			Tags:  []string{"vanguard", "location", "warning"},
		}, true
	case EventCameraUnavailable:
		// error
		return Message{
			Title: "Vanguard - Camera Unavailable",
			Body:  "📷 Camera unavailable (" + payload.text("error", "unknown error") + "). Alerts will be sent without video.",
			Tags:  []string{"vanguard", "camera", "warning"},
		}, true
	case EventUploadCompleted:
		// url
		return Message{Title: "Vanguard - Evidence Uploaded", Body: "☁️ Evidence uploaded: " + payload.text("url", ""), Tags: []string{"vanguard", "upload", "completed"}}, true
	case EventUploadFailed:
		// error
		return Message{
			Title: "Vanguard - Upload Failed",
			Body:  "Evidence upload failed: " + payload.text("error", "unknown error") + ". The recording is still in your gallery.",
			Tags:  []string{"vanguard", "upload", "error"},
		}, true
	case EventTest:
		return Message{Title: "Vanguard - Test", Body: "🔔 Test notification from Vanguard", Tags: []string{"vanguard", "test"}}, true
	default:
		return Message{}, false
	}
}

func (p Payload) text(key, fallback string) string {
	if p == nil {
		return fallback
	}
	value, ok := p[key]
	if !ok || value == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return fallback
	}
	return s
}
