package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(discardHandler); !ok {
		t.Fatal("expected discardHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("component", "tracker")

	logger.Debug("fix received")
	logger.Info("tracker started")

	if strings.Contains(infoBuf.String(), "fix received") {
		t.Fatalf("info handler received debug record: %q", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "fix received") || !strings.Contains(debugBuf.String(), "tracker started") {
		t.Fatalf("debug handler missing records: %q", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "component=tracker") {
		t.Fatalf("expected WithAttrs to reach every handler: %q", infoBuf.String())
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanoutHandlerJoinsErrorsButWritesAll(t *testing.T) {
	var buf bytes.Buffer
	h := newFanoutHandler(
		failingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)},
		slog.NewTextHandler(&buf, nil),
	)
	record := slog.NewRecord(testTime, slog.LevelWarn, "save failed", 0)
	if err := h.Handle(context.Background(), record); err == nil {
		t.Fatal("expected error from failing handler")
	}
	if !strings.Contains(buf.String(), "save failed") {
		t.Fatalf("second handler did not receive record: %q", buf.String())
	}
}
