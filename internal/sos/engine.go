package sos

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"vanguard/internal/alert"
	"vanguard/internal/contacts"
	"vanguard/internal/faults"
	"vanguard/internal/hotplug"
	"vanguard/internal/location"
	"vanguard/internal/logging"
	"vanguard/internal/notifications"
	"vanguard/internal/recording"
	"vanguard/internal/sharing"
	"vanguard/internal/upload"
)

// VideoNote is appended to broadcast alerts while a recording is running.
const VideoNote = "Video evidence is being recorded."

// Locator exposes the latest position fix.
type Locator interface {
	Latest() *location.Sample
	Status() string
}

// ContactLister returns the contacts in insertion order.
type ContactLister interface {
	List() []contacts.Contact
}

// Dispatcher issues alerts.
type Dispatcher interface {
	Dispatch(ctx context.Context, list []contacts.Contact, sample *location.Sample, note string, mode alert.Mode) (*alert.Result, error)
}

// Deps are the collaborators an Engine coordinates. Camera, Uploader, and
// Notifier may be nil.
type Deps struct {
	Locator     Locator
	Contacts    ContactLister
	Dispatcher  Dispatcher
	Camera      recording.MediaSource
	ContentType string
	Store       recording.Saver
	Sharer      recording.Offerer
	Uploader    upload.Uploader
	// AccountEmail enables uploads when set together with Uploader.
	AccountEmail string
	Notifier     notifications.Service
	Logger       *slog.Logger
}

// Completed describes what happened to one finished recording.
type Completed struct {
	Recording *recording.Recording
	Delivery  recording.Delivery
	UploadURL string
	UploadErr error
	Uploaded  bool
}

// Report summarizes a trigger.
type Report struct {
	TriggerID      string
	Status         string
	Mode           alert.Mode
	Alert          *alert.Result
	AlertErr       error
	Location       *location.Sample
	LocationStatus string
	// Evidence is set when the trigger stopped a recording.
	Evidence *Completed
}

// Engine runs triggers.
type Engine struct {
	locator      Locator
	contacts     ContactLister
	dispatcher   Dispatcher
	session      *recording.Session
	handoff      *recording.Handoff
	uploader     upload.Uploader
	accountEmail string
	notifier     notifications.Service
	logger       *slog.Logger

	mu        sync.Mutex
	completed map[string]*Completed
	listeners []func(*Completed)
}

// New builds an engine and its recording session.
func New(deps Deps) *Engine {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	e := &Engine{
		locator:      deps.Locator,
		contacts:     deps.Contacts,
		dispatcher:   deps.Dispatcher,
		uploader:     deps.Uploader,
		accountEmail: deps.AccountEmail,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(deps.Logger, "sos"),
		completed:    make(map[string]*Completed),
	}
	e.handoff = &recording.Handoff{
		Store:    deps.Store,
		Sharer:   deps.Sharer,
		Notifier: notifier,
		Logger:   deps.Logger,
	}
	e.session = recording.NewSession(deps.Camera, recording.Options{
		ContentType: deps.ContentType,
		Completion:  e,
		Logger:      deps.Logger,
	})
	return e
}

// Session exposes the engine's recording session.
func (e *Engine) Session() *recording.Session {
	return e.session
}

// Recording reports whether evidence is being captured.
func (e *Engine) Recording() bool {
	return e.session.State() == recording.StateRecording
}

// OnCompleted registers fn to run after each recording is delivered,
// including recordings finalized by device removal.
func (e *Engine) OnCompleted(fn func(*Completed)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Arm opens the camera and starts recording. A failure is announced and
// returned; triggers keep working without video.
func (e *Engine) Arm(ctx context.Context) error {
	logger := logging.WithContext(ctx, e.logger)
	if err := e.session.Open(ctx); err != nil {
		if errors.Is(err, recording.ErrBusy) || errors.Is(err, recording.ErrAborted) {
			return err
		}
		e.publish(ctx, logger, notifications.EventCameraUnavailable, notifications.Payload{"error": err.Error()})
		return err
	}
	if err := e.session.StartRecording(ctx); err != nil {
		e.publish(ctx, logger, notifications.EventCameraUnavailable, notifications.Payload{"error": err.Error()})
		return err
	}
	logger.Info("evidence recording armed", logging.String(logging.FieldSessionID, e.session.ID()))
	return nil
}

// Trigger alerts contacts selected by mode and then stops any active
// recording. The report is always returned; the error is the dispatch
// failure, if any.
func (e *Engine) Trigger(ctx context.Context, mode alert.Mode) (*Report, error) {
	triggerID := uuid.NewString()
	ctx = logging.WithTriggerID(ctx, triggerID)
	logger := logging.WithContext(ctx, e.logger)
	report := &Report{TriggerID: triggerID, Mode: mode}

	if e.locator != nil {
		report.Location = e.locator.Latest()
		report.LocationStatus = e.locator.Status()
	} else {
		report.LocationStatus = location.StatusUnsupported
	}
	if report.Location == nil {
		logging.WarnWithContext(logger, "sending alert without location", "location_unavailable",
			logging.String("location_status", report.LocationStatus),
			logging.String(logging.FieldErrorHint, "configure [location] or check the GPS receiver"),
			logging.String(logging.FieldImpact, "alerts will say location unavailable"),
		)
		e.publish(ctx, logger, notifications.EventLocationUnavailable, notifications.Payload{"status": report.LocationStatus})
	}

	var list []contacts.Contact
	if e.contacts != nil {
		list = e.contacts.List()
	}
	note := ""
	if e.Recording() {
		note = VideoNote
	}

	report.Alert, report.AlertErr = e.dispatch(ctx, list, report.Location, note, mode)
	if report.Alert != nil {
		report.Mode = report.Alert.Mode
	}
	switch {
	case errors.Is(report.AlertErr, faults.ErrNoContacts):
		report.Status = notifications.ContactsPrompt
		e.publish(ctx, logger, notifications.EventContactsMissing, nil)
	case report.AlertErr != nil:
		report.Status = "SOS NOT SENT: " + report.AlertErr.Error()
	default:
		report.Status = report.Alert.Status
		e.publish(ctx, logger, notifications.EventSOSDispatched, notifications.Payload{
			"status":  report.Status,
			"targets": len(report.Alert.Targets),
		})
	}

	if rec := e.session.Stop(ctx); rec != nil {
		report.Evidence = e.take(rec.SessionID)
	}
	return report, report.AlertErr
}

func (e *Engine) dispatch(ctx context.Context, list []contacts.Contact, sample *location.Sample, note string, mode alert.Mode) (result *alert.Result, err error) {
	if e.dispatcher == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "sos", "dispatch", "no alert dispatcher", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(e.logger, "alert dispatch panicked", "dispatch_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "recording is still being stopped and saved"),
			)
			result, err = nil, faults.Wrap(faults.ErrDelivery, "sos", "dispatch", "dispatcher panicked", nil)
		}
	}()
	return e.dispatcher.Dispatch(ctx, list, sample, note, mode)
}

// Finish stops the active recording without alerting anyone.
func (e *Engine) Finish(ctx context.Context) *Completed {
	rec := e.session.Stop(ctx)
	if rec == nil {
		return nil
	}
	return e.take(rec.SessionID)
}

// Close stops recording for shutdown.
func (e *Engine) Close(ctx context.Context) *Completed {
	rec := e.session.Close(ctx)
	if rec == nil {
		return nil
	}
	return e.take(rec.SessionID)
}

// HandleDevice finalizes the recording when the camera disappears.
func (e *Engine) HandleDevice(ctx context.Context, event hotplug.Event) {
	if event.Action != hotplug.ActionRemoved || !e.Recording() {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "camera removed while recording", "camera_removed",
		logging.String("device", event.Device),
		logging.String(logging.FieldErrorHint, "reconnect the camera and arm again"),
		logging.String(logging.FieldImpact, "the recording so far is being saved"),
	)
	if rec := e.session.Stop(ctx); rec != nil {
		e.take(rec.SessionID)
	}
}

// Complete delivers a finished recording. It runs inside the session's stop.
func (e *Engine) Complete(ctx context.Context, rec *recording.Recording) {
	logger := logging.WithContext(ctx, e.logger)
	done := &Completed{Recording: rec, Delivery: e.handoff.Deliver(ctx, rec)}

	if rec != nil && len(rec.Payload) > 0 {
		e.upload(ctx, logger, done)
	}

	e.mu.Lock()
	// Interrupted recordings come from the session itself; no caller collects them.
	if rec != nil && !rec.Interrupted {
		e.completed[rec.SessionID] = done
	}
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(done)
	}
}

func (e *Engine) upload(ctx context.Context, logger *slog.Logger, done *Completed) {
	if e.uploader == nil || e.accountEmail == "" {
		return
	}
	var sample *location.Sample
	if e.locator != nil {
		sample = e.locator.Latest()
	}
	if sample == nil {
		logger.Info("evidence upload skipped; no location fix")
		return
	}

	artifact := done.Delivery.Artifact
	nameID := artifact.ID
	if nameID == 0 {
		nameID = artifact.CapturedAt.UnixMilli()
	}
	url, err := e.uploader.Upload(ctx, upload.Event{
		AccountEmail: e.accountEmail,
		Video:        artifact.Payload,
		FileName:     sharing.SuggestedName(nameID, artifact.ContentType),
		ContentType:  artifact.ContentType,
		Lat:          sample.Lat,
		Lng:          sample.Lng,
		Timestamp:    artifact.CapturedAt,
	})
	done.Uploaded = true
	if err != nil {
		done.UploadErr = err
		logging.WarnWithContext(logger, "evidence upload failed", "upload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
			logging.String(logging.FieldImpact, "the recording is not in the remote SOS history"),
		)
		e.publish(ctx, logger, notifications.EventUploadFailed, notifications.Payload{"error": err.Error()})
		return
	}
	done.UploadURL = url
	logger.Info("evidence uploaded", logging.String("video_url", url))
	e.publish(ctx, logger, notifications.EventUploadCompleted, notifications.Payload{"url": url})
}

func (e *Engine) take(sessionID string) *Completed {
	e.mu.Lock()
	defer e.mu.Unlock()
	done := e.completed[sessionID]
	delete(e.completed, sessionID)
	return done
}

func (e *Engine) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		logger.Debug("notice not delivered", logging.String("event", string(event)), logging.Error(err))
	}
}
