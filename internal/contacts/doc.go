// Package contacts keeps the ordered list of emergency contacts.
//
// The Registry owns the list in memory and writes it through a Slot after
// every change; FileSlot stores it as JSON next to the evidence database.
// Order matters: the alert dispatcher treats the last-added priority contact
// as the primary target, so the registry never reorders entries.
// Subscribers are called with a fresh snapshot after each change.
package contacts
