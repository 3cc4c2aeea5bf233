package launcher

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	name   string
	args   []string
	output []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args
	return f.output, f.err
}

func TestOpenPassesURLLast(t *testing.T) {
	runner := &fakeRunner{}
	l := New("gio open")
	l.runner = runner

	if err := l.Open(context.Background(), "whatsapp://send?phone=+15551234&text=hi"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if runner.name != "gio" || len(runner.args) != 2 || runner.args[0] != "open" || runner.args[1] != "whatsapp://send?phone=+15551234&text=hi" {
		t.Fatalf("unexpected invocation %s %v", runner.name, runner.args)
	}
}

func TestDefaultsToXDGOpen(t *testing.T) {
	runner := &fakeRunner{}
	l := New("")
	l.runner = runner
	if err := l.Open(context.Background(), "https://web.whatsapp.com/send"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if runner.name != "xdg-open" {
		t.Fatalf("runner name = %q", runner.name)
	}
}

func TestOpenReportsOutputOnFailure(t *testing.T) {
	l := New("xdg-open")
	l.runner = &fakeRunner{err: errors.New("exit status 4"), output: []byte("no handler for scheme\n")}
	err := l.Open(context.Background(), "whatsapp://send")
	if err == nil || !strings.Contains(err.Error(), "no handler for scheme") {
		t.Fatalf("unexpected error %v", err)
	}
	if err := l.Open(context.Background(), " "); err == nil {
		t.Fatal("empty url should fail")
	}
}
