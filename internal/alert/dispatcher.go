package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vanguard/internal/contacts"
	"vanguard/internal/faults"
	"vanguard/internal/location"
	"vanguard/internal/logging"
)

// Mode selects which contacts a dispatch targets.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeBroadcast Mode = "broadcast"
	ModePrimary   Mode = "primary"
)

// ParseMode accepts auto, broadcast, or primary. Empty means auto.
func ParseMode(value string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeBroadcast, ModePrimary:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q (use auto, broadcast, or primary)", value)
	}
}

// Channel names a delivery path.
type Channel string

const (
	ChannelApp Channel = "app"
	ChannelWeb Channel = "web"
)

// Launcher opens a URL with whatever handles it on this system.
type Launcher interface {
	Open(ctx context.Context, url string) error
}

// Scheduler runs fn once after delay.
type Scheduler func(delay time.Duration, fn func())

// Settings are the messaging service coordinates.
type Settings struct {
	AppScheme     string
	WebHost       string
	MapProvider   string
	FallbackDelay time.Duration
}

// Event is one targeted alert. It lives only as long as the dispatch.
type Event struct {
	TriggeredAt time.Time
	Location    *location.Sample
	Target      *contacts.Contact
}

// Attempt records one issued channel call.
type Attempt struct {
	ContactID string
	Channel   Channel
	URL       string
	Err       error
}

// Result describes what a dispatch issued.
type Result struct {
	Issued   bool
	Mode     Mode
	Targets  []contacts.Contact
	Message  string
	Status   string
	Events   []Event
	Attempts []Attempt

	pending   sync.WaitGroup
	mu        sync.Mutex
	fallbacks []Attempt
}

// Fallbacks returns the web fallback attempts that have fired so far.
func (r *Result) Fallbacks() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Attempt(nil), r.fallbacks...)
}

// Wait blocks until every scheduled fallback has fired or ctx ends.
func (r *Result) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatcher issues alerts through a Launcher.
type Dispatcher struct {
	settings Settings
	launcher Launcher
	logger   *slog.Logger
	schedule Scheduler
	now      func() time.Time
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithScheduler replaces time.AfterFunc for fallback scheduling.
func WithScheduler(s Scheduler) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.schedule = s
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher returns a dispatcher for the given messaging service.
func NewDispatcher(settings Settings, launcher Launcher, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		settings: settings,
		launcher: launcher,
		logger:   logging.NewComponentLogger(logger, "alert"),
		schedule: func(delay time.Duration, fn func()) { time.AfterFunc(delay, fn) },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SelectTargets applies mode to list. Auto resolves to primary when any
// priority contact exists and to broadcast otherwise. Primary falls back to
// the most recently added contact when nobody is flagged priority.
func SelectTargets(list []contacts.Contact, mode Mode) (Mode, []contacts.Contact) {
	if len(list) == 0 {
		return mode, nil
	}
	primary := -1
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].IsPriority {
			primary = i
			break
		}
	}
	if mode == ModeAuto {
		mode = ModeBroadcast
		if primary >= 0 {
			mode = ModePrimary
		}
	}
	if mode == ModePrimary {
		if primary < 0 {
			primary = len(list) - 1
		}
		return mode, []contacts.Contact{list[primary]}
	}
	return ModeBroadcast, append([]contacts.Contact(nil), list...)
}

// Dispatch alerts the contacts selected by mode. The note is appended to the
// message in broadcast mode. An empty list returns faults.ErrNoContacts without
// touching any channel.
func (d *Dispatcher) Dispatch(ctx context.Context, list []contacts.Contact, sample *location.Sample, note string, mode Mode) (*Result, error) {
	logger := logging.WithContext(ctx, d.logger)
	if len(list) == 0 {
		logging.WarnWithContext(logger, "sos dispatch aborted", "contacts_missing",
			logging.String(logging.FieldErrorHint, "add a contact with 'vanguard contacts add'"),
			logging.String(logging.FieldImpact, "no alert was sent"),
		)
		return &Result{Mode: mode}, faults.Wrap(faults.ErrNoContacts, "alert", "dispatch", "contact list is empty", nil)
	}

	mode, targets := SelectTargets(list, mode)
	if mode != ModeBroadcast {
		note = ""
	}
	result := &Result{
		Mode:    mode,
		Message: ComposeMessage(d.settings.MapProvider, sample, note),
	}
	triggeredAt := d.now()
	fallbackCtx := context.WithoutCancel(ctx)

	for _, target := range targets {
		phone := SanitizePhone(target.PhoneNumber)
		if phone == "" {
			logging.WarnWithContext(logger, "contact skipped", "contact_phone_invalid",
				logging.String(logging.FieldContactID, target.ID),
				logging.String("contact_name", target.Name),
				logging.String(logging.FieldErrorHint, "edit the contact phone number"),
				logging.String(logging.FieldImpact, "this contact will not be alerted"),
			)
			continue
		}
		result.Targets = append(result.Targets, target)
		result.Events = append(result.Events, Event{TriggeredAt: triggeredAt, Location: sample, Target: &target})

		appURL := AppLink(d.settings.AppScheme, phone, result.Message)
		result.Attempts = append(result.Attempts, d.open(ctx, logger, target, ChannelApp, appURL))

		webURL := WebLink(d.settings.WebHost, phone, result.Message)
		result.pending.Add(1)
		d.schedule(d.settings.FallbackDelay, func() {
			defer result.pending.Done()
			attempt := d.open(fallbackCtx, logger, target, ChannelWeb, webURL)
			result.mu.Lock()
			result.fallbacks = append(result.fallbacks, attempt)
			result.mu.Unlock()
		})
	}

	if len(result.Targets) == 0 {
		return result, faults.Wrap(faults.ErrDelivery, "alert", "dispatch", "no contact has a usable phone number", nil)
	}

	result.Issued = true
	result.Status = statusText(result.Targets)
	logger.Info("sos dispatched",
		logging.String(logging.FieldMode, string(mode)),
		logging.Int("targets", len(result.Targets)),
		logging.Bool("location_known", sample != nil),
		logging.Duration("fallback_delay", d.settings.FallbackDelay),
	)
	return result, nil
}

func (d *Dispatcher) open(ctx context.Context, logger *slog.Logger, target contacts.Contact, channel Channel, url string) Attempt {
	attempt := Attempt{ContactID: target.ID, Channel: channel, URL: url}
	if d.launcher == nil {
		attempt.Err = errors.New("no launcher configured")
	} else if err := d.launcher.Open(ctx, url); err != nil {
		attempt.Err = err
	}
	if attempt.Err != nil {
		impact := "web fallback will still open"
		if channel == ChannelWeb {
			impact = "contact may not receive the alert"
		}
		logging.WarnWithContext(logger, "alert channel failed", "alert_channel_failed",
			logging.String(logging.FieldContactID, target.ID),
			logging.String("channel", string(channel)),
			logging.Error(attempt.Err),
			logging.String(logging.FieldErrorHint, faults.Hint(faults.ErrDelivery)),
			logging.String(logging.FieldImpact, impact),
		)
		return attempt
	}
	logger.Debug("alert channel opened",
		logging.String(logging.FieldContactID, target.ID),
		logging.String("channel", string(channel)),
	)
	return attempt
}

func statusText(targets []contacts.Contact) string {
	if len(targets) == 1 {
		return fmt.Sprintf("SOS SENT TO %s!", targets[0].Name)
	}
	return fmt.Sprintf("SOS SENT TO %d CONTACTS!", len(targets))
}
