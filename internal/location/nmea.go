package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"golang.org/x/sys/unix"
)

// NMEASource reads position fixes from a GPS receiver that speaks NMEA 0183,
// typically a USB serial device such as /dev/ttyACM0.
type NMEASource struct {
	Device string
	// Open overrides how the device is opened. Tests feed canned sentences through it.
	Open func(path string) (io.ReadCloser, error)
}

// Watch streams fixes until ctx is cancelled or the device ends.
func (s NMEASource) Watch(ctx context.Context, emit func(Sample)) error {
	reader, err := s.open()
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { _ = reader.Close() })
	defer func() {
		if stop() {
			_ = reader.Close()
		}
	}()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if sample, ok := ParseNMEA(scanner.Text()); ok {
			emit(sample)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w: %w", s.Device, ErrUnsupported, err)
	}
	return fmt.Errorf("%s closed: %w", s.Device, ErrUnsupported)
}

func (s NMEASource) open() (io.ReadCloser, error) {
	if s.Open != nil {
		return s.Open(s.Device)
	}
	if strings.TrimSpace(s.Device) == "" {
		return nil, ErrUnsupported
	}
	if err := unix.Access(s.Device, unix.R_OK); err != nil {
		switch {
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return nil, fmt.Errorf("%s: %w", s.Device, ErrPermissionDenied)
		default:
			return nil, fmt.Errorf("%s: %w: %w", s.Device, ErrUnsupported, err)
		}
	}
	file, err := os.Open(s.Device)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", s.Device, ErrUnsupported, err)
	}
	return file, nil
}

// ParseNMEA decodes a GGA or RMC sentence. Sentences without a valid fix, with
// a bad checksum, or of other types report false.
func ParseNMEA(line string) (Sample, bool) {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return Sample{}, false
	}
	var lat, lng float64
	switch m := sentence.(type) {
	case nmea.GGA:
		if m.FixQuality == "" || m.FixQuality == nmea.Invalid {
			return Sample{}, false
		}
		lat, lng = m.Latitude, m.Longitude
	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return Sample{}, false
		}
		lat, lng = m.Latitude, m.Longitude
	default:
		return Sample{}, false
	}
	return Sample{Lat: lat, Lng: lng, CapturedAt: time.Now()}, true
}
