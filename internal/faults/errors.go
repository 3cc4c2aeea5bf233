package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHardwareUnavailable marks a missing, busy, or inaccessible camera or GPS device.
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	// ErrNoContacts marks an SOS trigger with an empty contact list.
	ErrNoContacts = errors.New("no emergency contacts")
	// ErrPersistence marks a failure to read or write the evidence gallery or contact list.
	ErrPersistence = errors.New("persistence failure")
	// ErrDelivery marks an alert, share, download, or upload that could not be completed.
	ErrDelivery = errors.New("delivery failure")
	// ErrConfiguration marks invalid or missing settings.
	ErrConfiguration = errors.New("configuration error")
)

// Kind names a failure class for notices and log fields.
type Kind string

const (
	KindNone          Kind = ""
	KindHardware      Kind = "hardware_unavailable"
	KindPrecondition  Kind = "empty_precondition"
	KindPersistence   Kind = "persistence"
	KindDelivery      Kind = "delivery"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrDelivery
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps err to its failure class.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrHardwareUnavailable):
		return KindHardware
	case errors.Is(err, ErrNoContacts):
		return KindPrecondition
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// Hint returns the next step an operator should take for err.
func Hint(err error) string {
	switch Classify(err) {
	case KindHardware:
		return "check device permissions and that the device is connected"
	case KindPrecondition:
		return "add an emergency contact with 'vanguard contacts add'"
	case KindPersistence:
		return "check free disk space and the data_dir permissions"
	case KindDelivery:
		return "verify the launcher or share helper is installed"
	case KindConfiguration:
		return "review the configuration file (vanguard config show)"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "unspecified failure"
	}
	return strings.Join(parts, ": ")
}
