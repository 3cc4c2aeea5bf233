// Package faults defines the failure taxonomy shared by every Vanguard
// component.
//
// Each failure is tagged with one sentinel marker so the engine can decide how
// to degrade: hardware-unavailable falls back to a reduced mode, an empty
// contact list becomes an actionable prompt, persistence failures become
// non-blocking notices, and delivery failures are absorbed by the next
// fallback. Wrap attaches component and operation context while keeping the
// marker reachable through errors.Is.
package faults
