package location_test

import (
	"context"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vanguard/internal/location"
)

type funcSource func(ctx context.Context, emit func(location.Sample)) error

func (f funcSource) Watch(ctx context.Context, emit func(location.Sample)) error { return f(ctx, emit) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTrackerReportsStaticFix(t *testing.T) {
	tracker := location.NewTracker(location.StaticSource{Lat: 51.5, Lng: -0.12}, nil)
	if tracker.Latest() != nil {
		t.Fatal("expected no sample before start")
	}
	tracker.Start(context.Background())
	defer tracker.Stop()

	waitFor(t, "static fix", func() bool { return tracker.Latest() != nil })
	sample := tracker.Latest()
	if sample.Lat != 51.5 || sample.Lng != -0.12 {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if tracker.Status() != location.StatusMonitoring {
		t.Fatalf("status = %q", tracker.Status())
	}
	if !tracker.Running() {
		t.Fatal("expected tracker to be running")
	}
}

func TestTrackerKeepsOnlyLatestSample(t *testing.T) {
	emitted := make(chan struct{})
	source := funcSource(func(ctx context.Context, emit func(location.Sample)) error {
		emit(location.Sample{Lat: 1, Lng: 1})
		emit(location.Sample{Lat: 2, Lng: 2})
		emit(location.Sample{Lat: 3, Lng: 3})
		close(emitted)
		<-ctx.Done()
		return nil
	})
	tracker := location.NewTracker(source, nil)
	tracker.Start(context.Background())
	defer tracker.Stop()

	<-emitted
	if got := tracker.Latest(); got == nil || got.Lat != 3 || got.Lng != 3 {
		t.Fatalf("expected last write to win, got %+v", got)
	}
	if tracker.Latest().CapturedAt.IsZero() {
		t.Fatal("expected capture time to be stamped")
	}
}

func TestTrackerPermissionDenied(t *testing.T) {
	source := funcSource(func(context.Context, func(location.Sample)) error {
		return location.ErrPermissionDenied
	})
	tracker := location.NewTracker(source, nil)
	tracker.Start(context.Background())

	waitFor(t, "failure", func() bool { return !tracker.Running() })
	if tracker.Latest() != nil {
		t.Fatal("expected nil sample after denial")
	}
	if tracker.Status() != location.StatusDenied {
		t.Fatalf("status = %q", tracker.Status())
	}
	tracker.Stop()
	tracker.Stop()
}

func TestTrackerFailureClearsPreviousFix(t *testing.T) {
	release := make(chan struct{})
	source := funcSource(func(ctx context.Context, emit func(location.Sample)) error {
		emit(location.Sample{Lat: 10, Lng: 20})
		<-release
		return errors.New("receiver unplugged")
	})
	tracker := location.NewTracker(source, nil)
	tracker.Start(context.Background())
	defer tracker.Stop()

	waitFor(t, "fix", func() bool { return tracker.Latest() != nil })
	close(release)
	waitFor(t, "failure", func() bool { return !tracker.Running() })
	if tracker.Latest() != nil {
		t.Fatal("expected failure to clear the sample")
	}
	if tracker.Status() != location.StatusUnavailable {
		t.Fatalf("status = %q", tracker.Status())
	}
}

func TestTrackerWithoutSourceIsUnsupported(t *testing.T) {
	tracker := location.NewTracker(nil, nil)
	tracker.Start(context.Background())
	if tracker.Status() != location.StatusUnsupported {
		t.Fatalf("status = %q", tracker.Status())
	}
	if tracker.Latest() != nil {
		t.Fatal("expected nil sample")
	}
	tracker.Stop()
}

func TestTrackerCanRestartAfterFailure(t *testing.T) {
	var calls atomic.Int32
	source := funcSource(func(ctx context.Context, emit func(location.Sample)) error {
		if calls.Add(1) == 1 {
			return location.ErrPermissionDenied
		}
		emit(location.Sample{Lat: 4, Lng: 5})
		<-ctx.Done()
		return nil
	})
	tracker := location.NewTracker(source, nil)
	tracker.Start(context.Background())
	waitFor(t, "first failure", func() bool { return tracker.Status() == location.StatusDenied })

	tracker.Start(context.Background())
	defer tracker.Stop()
	waitFor(t, "fix after restart", func() bool { return tracker.Latest() != nil })
	if tracker.Status() != location.StatusMonitoring {
		t.Fatalf("status = %q", tracker.Status())
	}
}

func TestTrackerGoesIdleWhenStartContextEnds(t *testing.T) {
	source := funcSource(func(ctx context.Context, emit func(location.Sample)) error {
		emit(location.Sample{Lat: 1, Lng: 2})
		<-ctx.Done()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	tracker := location.NewTracker(source, nil)
	tracker.Start(ctx)
	waitFor(t, "fix", func() bool { return tracker.Latest() != nil })

	cancel()
	waitFor(t, "tracker stopped", func() bool { return !tracker.Running() })
	if tracker.Status() != location.StatusIdle {
		t.Fatalf("status = %q, want %q", tracker.Status(), location.StatusIdle)
	}
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	tracker := location.NewTracker(location.StaticSource{}, nil)
	tracker.Stop()
	if tracker.Status() != location.StatusIdle {
		t.Fatalf("status = %q", tracker.Status())
	}
	var nilTracker *location.Tracker
	nilTracker.Stop()
}

func TestParseNMEA(t *testing.T) {
	tests := []struct {
		name string
		line string
		ok   bool
		lat  float64
		lng  float64
	}{
		{"gga", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47", true, 48.1173, 11.516667},
		{"rmc", "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A", true, 48.1173, 11.516667},
		{"southern hemisphere", "$GNGGA,083000,3351.000,S,15112.600,E,1,05,1.2,20.0,M,,M,,*64", true, -33.85, 151.21},
		{"rmc void", "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D", false, 0, 0},
		{"gga no fix", "$GPGGA,123519,,,,,0,00,,,M,,M,,*6B", false, 0, 0},
		{"bad checksum", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00", false, 0, 0},
		{"other sentence", "$GPGSV,3,1,11,03,03,111,00*4A", false, 0, 0},
		{"missing checksum", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,", false, 0, 0},
		{"garbage", "hello", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample, ok := location.ParseNMEA(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if math.Abs(sample.Lat-tt.lat) > 1e-4 || math.Abs(sample.Lng-tt.lng) > 1e-4 {
				t.Fatalf("got %v,%v want %v,%v", sample.Lat, sample.Lng, tt.lat, tt.lng)
			}
		})
	}
}

func TestNMEASourceFeedsTracker(t *testing.T) {
	feed := strings.Join([]string{
		"$GPGSV,3,1,11,03,03,111,00*4A",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	}, "\r\n") + "\r\n"
	pr, pw := io.Pipe()
	source := location.NMEASource{
		Device: "/dev/ttyFAKE",
		Open:   func(string) (io.ReadCloser, error) { return pr, nil },
	}
	go func() { _, _ = pw.Write([]byte(feed)) }()

	tracker := location.NewTracker(source, nil)
	tracker.Start(context.Background())
	waitFor(t, "nmea fix", func() bool { return tracker.Latest() != nil })
	if got := tracker.Latest(); math.Abs(got.Lat-48.1173) > 1e-4 {
		t.Fatalf("unexpected fix %+v", got)
	}

	tracker.Stop()
	if tracker.Running() {
		t.Fatal("expected tracker stopped")
	}
}

func TestNMEASourceMissingDevice(t *testing.T) {
	source := location.NMEASource{Device: filepath.Join(t.TempDir(), "ttyACM9")}
	err := source.Watch(context.Background(), func(location.Sample) {})
	if !errors.Is(err, location.ErrUnsupported) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}
