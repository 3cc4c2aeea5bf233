package recording

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vanguard/internal/faults"
	"vanguard/internal/logging"
)

var (
	// ErrBusy reports an Open while a session is already active.
	ErrBusy = errors.New("recording session already active")
	// ErrNotStreaming reports StartRecording without an open stream.
	ErrNotStreaming = errors.New("no open stream to record")
	// ErrAborted reports that Stop cancelled an Open in progress.
	ErrAborted = errors.New("stream acquisition aborted")
)

// MediaSource grants access to the camera and microphone. The returned
// stream must outlive the context passed to Acquire.
type MediaSource interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired capture stream.
//
// Record starts producing encoded chunks. The channel must be closed once ctx
// is cancelled or the stream ends. Release frees the underlying hardware; it
// may be called more than once.
type Stream interface {
	Record(ctx context.Context) (<-chan []byte, error)
	Release() error
}

// Recording is a finished capture.
type Recording struct {
	SessionID   string
	Payload     []byte
	Chunks      int
	ContentType string
	CapturedAt  time.Time
	StoppedAt   time.Time
	// Interrupted is set when the stream ended without an explicit stop.
	Interrupted bool
}

// Completion receives finished recordings. It runs synchronously inside Stop
// and must not return errors; failures are its own to log.
type Completion interface {
	Complete(ctx context.Context, rec *Recording)
}

// CompletionFunc adapts a function to Completion.
type CompletionFunc func(ctx context.Context, rec *Recording)

// Complete calls f.
func (f CompletionFunc) Complete(ctx context.Context, rec *Recording) { f(ctx, rec) }

// Options configures a Session.
type Options struct {
	ContentType string
	Completion  Completion
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Session owns the capture stream while it is open.
type Session struct {
	source      MediaSource
	completion  Completion
	contentType string
	logger      *slog.Logger
	now         func() time.Time

	mu            sync.Mutex
	state         State
	gen           uint64
	id            string
	stream        Stream
	acquireCancel context.CancelFunc
	recCancel     context.CancelFunc
	recDone       chan struct{}
	chunks        [][]byte
	startedAt     time.Time
	stopping      chan struct{}
}

// NewSession returns an idle session over source.
func NewSession(source MediaSource, opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		source:      source,
		completion:  opts.Completion,
		contentType: opts.ContentType,
		logger:      logging.NewComponentLogger(opts.Logger, "recording"),
		now:         clock,
	}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the identifier of the active session, or "" when idle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Open acquires the capture stream. Failure returns the session to Idle with
// an error wrapping faults.ErrHardwareUnavailable.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open", "session is "+state.String(), ErrBusy)
	}
	if s.source == nil {
		s.mu.Unlock()
		return faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open", "no camera configured", nil)
	}
	s.gen++
	gen := s.gen
	acquireCtx, cancel := context.WithCancel(ctx)
	s.state = StateAcquiring
	s.acquireCancel = cancel
	s.mu.Unlock()

	stream, err := s.source.Acquire(acquireCtx)
	cancel()

	s.mu.Lock()
	if s.gen != gen || s.state != StateAcquiring {
		s.mu.Unlock()
		if stream != nil {
			_ = stream.Release()
		}
		return ErrAborted
	}
	s.acquireCancel = nil
	if err != nil || stream == nil {
		s.state = StateIdle
		s.mu.Unlock()
		if err == nil {
			err = errors.New("source returned no stream")
		}
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "camera unavailable", "camera_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(faults.ErrHardwareUnavailable)),
			logging.String(logging.FieldImpact, "no video evidence will be captured"),
		)
		if errors.Is(err, faults.ErrHardwareUnavailable) {
			return err
		}
		return faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open", "acquire camera", err)
	}
	s.stream = stream
	s.id = uuid.NewString()
	s.state = StateStreaming
	id := s.id
	s.mu.Unlock()

	s.logger.Info("camera stream open", logging.String(logging.FieldSessionID, id))
	return nil
}

// StartRecording begins collecting chunks from the open stream. Recording
// continues until Stop; cancelling ctx does not end it.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming {
		return ErrNotStreaming
	}

	recordCtx, cancel := context.WithCancel(logging.WithSessionID(context.WithoutCancel(ctx), s.id))
	chunks, err := s.stream.Record(recordCtx)
	if err != nil {
		cancel()
		s.releaseLocked()
		return faults.Wrap(faults.ErrHardwareUnavailable, "recording", "start", "begin capture", err)
	}

	done := make(chan struct{})
	s.recCancel = cancel
	s.recDone = done
	s.chunks = nil
	s.startedAt = s.now()
	s.state = StateRecording
	go s.collect(s.gen, chunks, done)

	s.logger.Info("recording started", logging.String(logging.FieldSessionID, s.id))
	return nil
}

// collect is the single consumer of the chunk channel, so chunks are appended
// strictly in arrival order.
func (s *Session) collect(gen uint64, chunks <-chan []byte, done chan struct{}) {
	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		owned := append([]byte(nil), chunk...)
		s.mu.Lock()
		s.chunks = append(s.chunks, owned)
		s.mu.Unlock()
	}
	close(done)

	s.mu.Lock()
	ended := s.gen == gen && s.state == StateRecording
	id := s.id
	s.mu.Unlock()
	if ended {
		logging.WarnWithContext(s.logger, "capture stream ended", "recording_interrupted",
			logging.String(logging.FieldSessionID, id),
			logging.String(logging.FieldErrorHint, "check the camera connection"),
			logging.String(logging.FieldImpact, "the recording so far is being saved"),
		)
		s.stop(logging.WithSessionID(context.Background(), id), gen, true)
	}
}

// Stop ends the session. A recording in progress is finalized and handed to
// the completion before Stop returns. Stop with nothing active is a no-op;
// concurrent calls wait for the first to finish. The session is always Idle
// afterwards.
func (s *Session) Stop(ctx context.Context) *Recording {
	return s.stop(ctx, 0, false)
}

// Close is Stop for shutdown paths.
func (s *Session) Close(ctx context.Context) *Recording {
	return s.stop(ctx, 0, false)
}

// stop finalizes the session. A non-zero gen limits it to that session.
func (s *Session) stop(ctx context.Context, gen uint64, interrupted bool) *Recording {
	s.mu.Lock()
	if gen != 0 && s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return nil
	case StateAcquiring:
		if s.acquireCancel != nil {
			s.acquireCancel()
			s.acquireCancel = nil
		}
		s.gen++
		s.state = StateIdle
		s.mu.Unlock()
		return nil
	case StateStreaming:
		s.releaseLocked()
		s.mu.Unlock()
		return nil
	case StateStopped:
		wait := s.stopping
		s.mu.Unlock()
		if wait != nil {
			<-wait
		}
		return nil
	}

	// Recording.
	stopping := make(chan struct{})
	s.stopping = stopping
	s.state = StateStopped
	cancel, done := s.recCancel, s.recDone
	id := s.id
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.releaseLocked()
		s.stopping = nil
		s.mu.Unlock()
		close(stopping)
	}()

	cancel()
	<-done

	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	startedAt := s.startedAt
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	rec := &Recording{
		SessionID:   id,
		Payload:     concat(chunks),
		Chunks:      len(chunks),
		ContentType: s.contentType,
		CapturedAt:  startedAt,
		StoppedAt:   s.now(),
		Interrupted: interrupted,
	}
	release(s.logger, id, stream)

	s.logger.Info("recording stopped",
		logging.String(logging.FieldSessionID, id),
		logging.Int("chunks", rec.Chunks),
		logging.Int("bytes", len(rec.Payload)),
		logging.Duration("duration", rec.StoppedAt.Sub(rec.CapturedAt)),
		logging.Bool("interrupted", interrupted),
	)

	if s.completion != nil {
		s.completion.Complete(logging.WithSessionID(ctx, id), rec)
	}
	return rec
}

// releaseLocked frees the stream, if still held, and returns to Idle.
func (s *Session) releaseLocked() {
	if s.stream != nil {
		release(s.logger, s.id, s.stream)
		s.stream = nil
	}
	s.recCancel = nil
	s.recDone = nil
	s.id = ""
	s.state = StateIdle
}

func release(logger *slog.Logger, id string, stream Stream) {
	if stream == nil {
		return
	}
	if err := stream.Release(); err != nil {
		logging.WarnWithContext(logger, "camera release failed", "camera_release_failed",
			logging.String(logging.FieldSessionID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the camera may stay busy until the device is reconnected"),
		)
	}
}

func concat(chunks [][]byte) []byte {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	payload := make([]byte, 0, total)
	for _, chunk := range chunks {
		payload = append(payload, chunk...)
	}
	return payload
}
