package sos

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vanguard/internal/alert"
	"vanguard/internal/contacts"
	"vanguard/internal/evidence"
	"vanguard/internal/faults"
	"vanguard/internal/hotplug"
	"vanguard/internal/location"
	"vanguard/internal/notifications"
	"vanguard/internal/recording"
	"vanguard/internal/sharing"
	"vanguard/internal/upload"
)

type fixedLocator struct {
	sample *location.Sample
	status string
}

func (f fixedLocator) Latest() *location.Sample { return f.sample }
func (f fixedLocator) Status() string           { return f.status }

type contactList []contacts.Contact

func (c contactList) List() []contacts.Contact { return c }

type urlLog struct {
	mu   sync.Mutex
	urls []string
}

func (u *urlLog) Open(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.urls = append(u.urls, url)
	return nil
}

func (u *urlLog) all() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.urls...)
}

type chunkStream struct {
	chunks   chan []byte
	released chan struct{}
	once     sync.Once
}

func (s *chunkStream) Record(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-s.chunks:
				if !ok {
					return
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *chunkStream) Release() error {
	s.once.Do(func() { close(s.released) })
	return nil
}

type camera struct {
	stream *chunkStream
	err    error
}

func (c *camera) Acquire(context.Context) (recording.Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

// feed delivers chunks to the session. The trailing empty chunk is dropped by
// the collector and only returns once the last real chunk was handed over.
func (c *camera) feed(chunks ...string) {
	for _, chunk := range chunks {
		c.stream.chunks <- []byte(chunk)
	}
	c.stream.chunks <- []byte{}
}

func newCamera() *camera {
	return &camera{stream: &chunkStream{chunks: make(chan []byte), released: make(chan struct{})}}
}

type memorySaver struct {
	err   error
	saved [][]byte
}

func (m *memorySaver) Save(_ context.Context, payload []byte, _ time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.saved = append(m.saved, payload)
	return int64(1700000000000 + len(m.saved)), nil
}

type offerLog struct {
	names []string
}

func (o *offerLog) Offer(_ context.Context, _ evidence.Artifact, name string) sharing.Outcome {
	o.names = append(o.names, name)
	return sharing.Outcome{Result: sharing.ResultDownloaded}
}

type fakeUploader struct {
	events []upload.Event
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, event upload.Event) (string, error) {
	f.events = append(f.events, event)
	if f.err != nil {
		return "", f.err
	}
	return "/uploads/1.webm", nil
}

type noticeLog struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *noticeLog) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *noticeLog) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type harness struct {
	engine   *Engine
	launched *urlLog
	camera   *camera
	saver    *memorySaver
	offers   *offerLog
	uploader *fakeUploader
	notices  *noticeLog
}

func newHarness(list contactList, sample *location.Sample) *harness {
	h := &harness{
		launched: &urlLog{},
		camera:   newCamera(),
		saver:    &memorySaver{},
		offers:   &offerLog{},
		uploader: &fakeUploader{},
		notices:  &noticeLog{},
	}
	dispatcher := alert.NewDispatcher(alert.Settings{
		AppScheme:     "whatsapp",
		WebHost:       "web.whatsapp.com",
		MapProvider:   "google.com",
		FallbackDelay: 1500 * time.Millisecond,
	}, h.launched, nil, alert.WithScheduler(func(_ time.Duration, fn func()) { fn() }))
	h.engine = New(Deps{
		Locator:      fixedLocator{sample: sample, status: location.StatusMonitoring},
		Contacts:     list,
		Dispatcher:   dispatcher,
		Camera:       h.camera,
		ContentType:  "video/webm",
		Store:        h.saver,
		Sharer:       h.offers,
		Uploader:     h.uploader,
		AccountEmail: "ada@example.com",
		Notifier:     h.notices,
	})
	return h
}

func twoContacts() contactList {
	return contactList{
		{ID: "a", Name: "Ann", PhoneNumber: "+1 555 0100"},
		{ID: "b", Name: "Bob", PhoneNumber: "555-0101"},
	}
}

func waitRecording(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !e.Recording() {
		if time.Now().After(deadline) {
			t.Fatal("engine never started recording")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTriggerAlertsAndStopsRecording(t *testing.T) {
	sample := &location.Sample{Lat: 40.7128, Lng: -74.006}
	h := newHarness(twoContacts(), sample)
	ctx := context.Background()

	if err := h.engine.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	waitRecording(t, h.engine)
	h.camera.feed("c1", "c2")

	report, err := h.engine.Trigger(ctx, alert.ModeBroadcast)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if report.Status != "SOS SENT TO 2 CONTACTS!" {
		t.Fatalf("status = %q", report.Status)
	}
	if !strings.Contains(report.Alert.Message, VideoNote) {
		t.Fatalf("broadcast message should mention the recording: %q", report.Alert.Message)
	}
	if got := len(h.launched.all()); got != 4 {
		t.Fatalf("expected app and web links for both contacts, got %d", got)
	}
	if report.Evidence == nil {
		t.Fatal("trigger should report the stopped recording")
	}
	if len(h.saver.saved) != 1 {
		t.Fatalf("saved %d recordings", len(h.saver.saved))
	}
	if len(h.offers.names) != 1 {
		t.Fatalf("offered %d recordings", len(h.offers.names))
	}
	if report.Evidence.UploadURL != "/uploads/1.webm" || len(h.uploader.events) != 1 {
		t.Fatalf("upload not performed: %+v", report.Evidence)
	}
	if ev := h.uploader.events[0]; ev.AccountEmail != "ada@example.com" || ev.Lat != 40.7128 || ev.Lng != -74.006 {
		t.Fatalf("unexpected upload tuple %+v", ev)
	}
	if h.engine.Session().State() != recording.StateIdle {
		t.Fatalf("session state = %s", h.engine.Session().State())
	}
	select {
	case <-h.camera.stream.released:
	default:
		t.Fatal("camera stream not released")
	}
	if !h.notices.has(notifications.EventSOSDispatched) || !h.notices.has(notifications.EventEvidenceSaved) {
		t.Fatalf("notices %v", h.notices.events)
	}
}

func TestTriggerWithoutContactsStillSavesRecording(t *testing.T) {
	h := newHarness(nil, nil)
	ctx := context.Background()

	if err := h.engine.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	waitRecording(t, h.engine)
	h.camera.feed("evidence")

	report, err := h.engine.Trigger(ctx, alert.ModeAuto)
	if !errors.Is(err, faults.ErrNoContacts) {
		t.Fatalf("expected ErrNoContacts, got %v", err)
	}
	if report.Status != notifications.ContactsPrompt {
		t.Fatalf("status = %q", report.Status)
	}
	if len(h.launched.all()) != 0 {
		t.Fatal("no channel may be attempted without contacts")
	}
	if len(h.saver.saved) != 1 {
		t.Fatal("recording must still be saved when the alert fails")
	}
	if len(h.uploader.events) != 0 {
		t.Fatal("upload requires a location fix")
	}
	if !h.notices.has(notifications.EventContactsMissing) || !h.notices.has(notifications.EventLocationUnavailable) {
		t.Fatalf("notices %v", h.notices.events)
	}
}

func TestTriggerWithoutCameraStillAlerts(t *testing.T) {
	h := newHarness(twoContacts(), nil)
	h.camera.err = errors.New("no such device")
	ctx := context.Background()

	if err := h.engine.Arm(ctx); !errors.Is(err, faults.ErrHardwareUnavailable) {
		t.Fatalf("expected hardware error, got %v", err)
	}
	report, err := h.engine.Trigger(ctx, alert.ModeBroadcast)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !report.Alert.Issued || report.Evidence != nil {
		t.Fatalf("unexpected report %+v", report)
	}
	if strings.Contains(report.Alert.Message, VideoNote) {
		t.Fatal("message must not claim a recording that is not running")
	}
	if !strings.Contains(report.Alert.Message, "location unavailable") {
		t.Fatalf("message should carry the location marker: %q", report.Alert.Message)
	}
	if !h.notices.has(notifications.EventCameraUnavailable) {
		t.Fatalf("notices %v", h.notices.events)
	}
}

func TestTriggerPrimaryModeTargetsPriorityContact(t *testing.T) {
	list := contactList{
		{ID: "a", Name: "Ann", PhoneNumber: "+15550100", IsPriority: true},
		{ID: "b", Name: "Bob", PhoneNumber: "+15550101"},
		{ID: "c", Name: "Cat", PhoneNumber: "+15550102", IsPriority: true},
	}
	h := newHarness(list, &location.Sample{Lat: 1, Lng: 2})
	report, err := h.engine.Trigger(context.Background(), alert.ModePrimary)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if report.Status != "SOS SENT TO Cat!" || report.Mode != alert.ModePrimary {
		t.Fatalf("unexpected report %q %s", report.Status, report.Mode)
	}
}

func TestCameraRemovalFinalizesRecording(t *testing.T) {
	h := newHarness(twoContacts(), nil)
	ctx := context.Background()
	var completed []*Completed
	h.engine.OnCompleted(func(c *Completed) { completed = append(completed, c) })

	if err := h.engine.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	waitRecording(t, h.engine)
	h.camera.feed("partial")

	h.engine.HandleDevice(ctx, hotplug.Event{Action: hotplug.ActionAdded, Device: "/dev/video0"})
	if !h.engine.Recording() {
		t.Fatal("add events must not stop the recording")
	}
	h.engine.HandleDevice(ctx, hotplug.Event{Action: hotplug.ActionRemoved, Device: "/dev/video0"})
	if h.engine.Recording() {
		t.Fatal("removal should stop the recording")
	}
	if len(completed) != 1 || string(completed[0].Recording.Payload) != "partial" {
		t.Fatalf("completed %+v", completed)
	}
	if len(h.saver.saved) != 1 {
		t.Fatal("removed-camera recording must be saved")
	}
}

func TestUploadFailureIsReported(t *testing.T) {
	h := newHarness(twoContacts(), &location.Sample{Lat: 1, Lng: 2})
	h.uploader.err = faults.Wrap(faults.ErrDelivery, "upload", "post", "status 500", nil)
	ctx := context.Background()

	if err := h.engine.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	waitRecording(t, h.engine)
	h.camera.feed("x")

	done := h.engine.Finish(ctx)
	if done == nil || done.UploadErr == nil || !done.Uploaded {
		t.Fatalf("expected upload failure, got %+v", done)
	}
	if len(h.uploader.events) != 1 {
		t.Fatalf("upload attempted %d times", len(h.uploader.events))
	}
	if !h.notices.has(notifications.EventUploadFailed) {
		t.Fatalf("notices %v", h.notices.events)
	}
	if h.engine.Finish(ctx) != nil {
		t.Fatal("second Finish should be a no-op")
	}
}

func TestSaveFailureStillOffersAndAlerts(t *testing.T) {
	h := newHarness(twoContacts(), nil)
	h.saver.err = faults.Wrap(faults.ErrPersistence, "evidence", "save", "disk full", nil)
	ctx := context.Background()

	if err := h.engine.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	waitRecording(t, h.engine)
	h.camera.feed("x")

	report, err := h.engine.Trigger(ctx, alert.ModeBroadcast)
	if err != nil || !report.Alert.Issued {
		t.Fatalf("alert should succeed: %v", err)
	}
	if report.Evidence == nil || report.Evidence.Delivery.Saved {
		t.Fatalf("unexpected evidence %+v", report.Evidence)
	}
	if len(h.offers.names) != 1 {
		t.Fatal("unsaved recording must still be offered")
	}
	if !h.notices.has(notifications.EventPersistenceFailed) {
		t.Fatalf("notices %v", h.notices.events)
	}
}

func TestEveryCompletionListenerFires(t *testing.T) {
	h := newHarness(twoContacts(), nil)
	ctx := context.Background()
	var first, second []string
	h.engine.OnCompleted(func(c *Completed) { first = append(first, string(c.Recording.Payload)) })
	h.engine.OnCompleted(func(c *Completed) { second = append(second, string(c.Recording.Payload)) })

	if err := h.engine.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	waitRecording(t, h.engine)
	h.camera.feed("clip")
	done := h.engine.Finish(ctx)
	if done == nil || string(done.Recording.Payload) != "clip" {
		t.Fatalf("Finish returned %+v", done)
	}
	if len(first) != 1 || first[0] != "clip" || len(second) != 1 || second[0] != "clip" {
		t.Fatalf("listeners saw %v and %v", first, second)
	}
}
