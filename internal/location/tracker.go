package location

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vanguard/internal/logging"
)

// Status strings exposed by Tracker.Status.
const (
	StatusIdle        = "Location Idle"
	StatusMonitoring  = "Monitoring Location"
	StatusDenied      = "Location Access Denied"
	StatusUnsupported = "Geolocation not supported"
	StatusUnavailable = "Location Unavailable"
)

var (
	// ErrPermissionDenied reports that the position source refused access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnsupported reports that no position hardware is available.
	ErrUnsupported = errors.New("geolocation not supported")
)

// Sample is one position fix.
type Sample struct {
	Lat        float64
	Lng        float64
	CapturedAt time.Time
}

// Source produces position fixes. Watch blocks, calling emit for every fix,
// until ctx is cancelled or the source fails.
type Source interface {
	Watch(ctx context.Context, emit func(Sample)) error
}

// Tracker keeps the latest sample reported by a Source.
type Tracker struct {
	source Source
	logger *slog.Logger

	mu      sync.Mutex
	latest  *Sample
	status  string
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewTracker wraps source. A nil source behaves as unsupported hardware.
func NewTracker(source Source, logger *slog.Logger) *Tracker {
	return &Tracker{
		source: source,
		logger: logging.NewComponentLogger(logger, "location"),
		status: StatusIdle,
	}
}

// Start begins observation in the background. Starting a running tracker is a
// no-op; starting after a failure retries the source.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	if t.source == nil {
		t.failLocked(ErrUnsupported)
		return
	}

	if t.cancel != nil {
		t.cancel()
	}
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.running = true
	t.status = StatusMonitoring

	go t.watch(watchCtx, done)
}

func (t *Tracker) watch(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := t.source.Watch(ctx, t.record)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != done {
		return
	}
	t.running = false
	if ctx.Err() != nil {
		t.status = StatusIdle
		return
	}
	if err == nil {
		err = ErrUnsupported
	}
	t.failLocked(err)
}

func (t *Tracker) record(sample Sample) {
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = time.Now()
	}
	t.mu.Lock()
	t.latest = &sample
	t.status = StatusMonitoring
	t.mu.Unlock()
}

func (t *Tracker) failLocked(err error) {
	t.latest = nil
	switch {
	case errors.Is(err, ErrPermissionDenied):
		t.status = StatusDenied
	case errors.Is(err, ErrUnsupported):
		t.status = StatusUnsupported
	default:
		t.status = StatusUnavailable
	}
	logging.WarnWithContext(t.logger, "location observation failed", "location_unavailable",
		logging.Error(err),
		logging.String("status", t.status),
		logging.String(logging.FieldErrorHint, "check GPS device permissions or configure location.source"),
		logging.String(logging.FieldImpact, "alerts will say location unavailable"),
	)
}

// Latest returns a copy of the freshest sample, or nil when none is known.
func (t *Tracker) Latest() *Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return nil
	}
	sample := *t.latest
	return &sample
}

// Status returns the human-readable tracker state.
func (t *Tracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Running reports whether the source is being observed.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Stop releases the observation and waits for the source to return. It is
// safe to call repeatedly and on a tracker that never started.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.done = nil
	if t.running {
		t.status = StatusIdle
	}
	t.running = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
