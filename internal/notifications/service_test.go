package notifications_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vanguard/internal/config"
	"vanguard/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventSOSDispatched, notifications.Payload{"status": "SOS SENT TO Mom!"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("nil config: %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:           "sos dispatched",
			event:          notifications.EventSOSDispatched,
			payload:        notifications.Payload{"status": "SOS SENT TO Mom!"},
			expectTitle:    "Vanguard - SOS Sent",
			expectMessage:  "🚨 SOS SENT TO Mom!",
			expectTags:     "vanguard,sos,sent",
			expectPriority: "urgent",
		},
		{
			name:           "contacts missing",
			event:          notifications.EventContactsMissing,
			expectTitle:    "Vanguard - No Contacts",
			expectMessage:  "⚠️ Please add an SOS Contact first!",
			expectTags:     "vanguard,contacts,warning",
			expectPriority: "high",
		},
		{
			name:          "evidence saved",
			event:         notifications.EventEvidenceSaved,
			payload:       notifications.Payload{"id": int64(1700000000000), "size_bytes": int64(2_500_000)},
			expectTitle:   "Vanguard - Evidence Saved",
			expectMessage: "🎥 Recording saved to gallery (#1700000000000, 2.5 MB)",
			expectTags:    "vanguard,evidence,saved",
		},
		{
			name:          "downloaded and kept",
			event:         notifications.EventEvidenceDownloaded,
			payload:       notifications.Payload{"path": "/tmp/sos-evidence-1.webm", "kept": true},
			expectTitle:   "Vanguard - Video Downloaded",
			expectMessage: "💾 Video downloaded to /tmp/sos-evidence-1.webm. It was also kept in your gallery.",
			expectTags:    "vanguard,evidence,download",
		},
		{
			name:          "downloaded without gallery copy",
			event:         notifications.EventEvidenceDownloaded,
			payload:       notifications.Payload{"path": "/tmp/sos-evidence-1.webm", "kept": false},
			expectTitle:   "Vanguard - Video Downloaded",
			expectMessage: "💾 Video downloaded to /tmp/sos-evidence-1.webm.",
			expectTags:    "vanguard,evidence,download",
		},
		{
			name:          "location unavailable",
			event:         notifications.EventLocationUnavailable,
			payload:       notifications.Payload{"status": "Location Access Denied"},
			expectTitle:   "Vanguard - Location Unavailable",
			expectMessage: "📍 Location Access Denied: alerts will not include a map link.",
			expectTags:    "vanguard,location,warning",
		},
		{
			name:           "persistence failed",
			event:          notifications.EventPersistenceFailed,
			payload:        notifications.Payload{"error": "disk full"},
			expectTitle:    "Vanguard - Evidence Not Saved",
			expectMessage:  "❌ Could not save the recording to the gallery: disk full",
			expectTags:     "vanguard,evidence,error",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	if err := notifications.NewConsole(&buf).Publish(context.Background(), notifications.Event("nope"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

type recordingService struct {
	events []notifications.Event
	err    error
}

func (r *recordingService) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.events = append(r.events, event)
	return r.err
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	failing := &recordingService{err: errors.New("offline")}
	ok := &recordingService{}
	svc := notifications.Multi(notifications.NewConsole(&buf), failing, nil, notifications.NewNoop(), ok)

	err := svc.Publish(context.Background(), notifications.EventContactsMissing, nil)
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(failing.events) != 1 || len(ok.events) != 1 {
		t.Fatalf("expected every service to receive the event: %v %v", failing.events, ok.events)
	}
	if strings.TrimSpace(buf.String()) != notifications.ContactsPrompt {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestMultiCollapsesSingleService(t *testing.T) {
	only := &recordingService{}
	if got := notifications.Multi(nil, notifications.NewNoop(), only); got != notifications.Service(only) {
		t.Fatalf("expected the single real service back, got %T", got)
	}
}
