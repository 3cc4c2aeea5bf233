package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"vanguard/internal/faults"
)

// DefaultChunkSize is the read size used when DeviceSource.ChunkSize is unset.
const DefaultChunkSize = 64 * 1024

// DeviceSource captures from a device node or FIFO that already delivers an
// encoded stream, such as a pipe fed by an encoder process.
type DeviceSource struct {
	Path      string
	ChunkSize int
	// Open overrides how the device is opened.
	Open func(path string) (io.ReadCloser, error)
}

// Acquire checks that the device is readable and opens it.
func (d DeviceSource) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reader, err := d.open()
	if err != nil {
		return nil, err
	}
	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &deviceStream{path: d.Path, reader: reader, chunkSize: size}, nil
}

func (d DeviceSource) open() (io.ReadCloser, error) {
	if d.Open != nil {
		reader, err := d.Open(d.Path)
		if err != nil {
			return nil, faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open device", d.Path, err)
		}
		return reader, nil
	}
	if strings.TrimSpace(d.Path) == "" {
		return nil, faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open device", "camera.device not set", nil)
	}
	if err := unix.Access(d.Path, unix.R_OK); err != nil {
		message := d.Path
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
			message = d.Path + " (permission denied)"
		}
		return nil, faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open device", message, err)
	}
	file, err := os.Open(d.Path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrHardwareUnavailable, "recording", "open device", d.Path, err)
	}
	return file, nil
}

type deviceStream struct {
	path      string
	reader    io.ReadCloser
	chunkSize int

	mu       sync.Mutex
	started  bool
	released bool
}

// Record reads chunks until ctx is cancelled or the device reaches EOF.
func (s *deviceStream) Record(ctx context.Context) (<-chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, fmt.Errorf("%s: stream released", s.path)
	}
	if s.started {
		return nil, fmt.Errorf("%s: already recording", s.path)
	}
	s.started = true

	out := make(chan []byte)
	stop := context.AfterFunc(ctx, s.interrupt)
	go func() {
		defer close(out)
		defer stop()
		buf := make([]byte, s.chunkSize)
		for {
			n, err := s.reader.Read(buf)
			if n > 0 {
				// The consumer drains until close, so a chunk read before
				// cancellation is always delivered.
				out <- append([]byte(nil), buf[:n]...)
			}
			if err != nil || ctx.Err() != nil {
				return
			}
		}
	}()
	return out, nil
}

// interrupt unblocks a pending read.
func (s *deviceStream) interrupt() {
	if file, ok := s.reader.(interface{ SetReadDeadline(time.Time) error }); ok {
		if err := file.SetReadDeadline(time.Now()); err == nil {
			return
		}
	}
	_ = s.Release()
}

// Release closes the device. Later calls are no-ops.
func (s *deviceStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	return s.reader.Close()
}
