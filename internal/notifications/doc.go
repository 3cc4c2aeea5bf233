// Package notifications delivers user-facing notices about SOS activity.
//
// Every notice is an Event plus a Payload. Format turns the pair into a title
// and body once, and each transport renders that: the console writer prints the
// body for the person at the keyboard, and the ntfy service pushes it to a
// phone when a topic is configured. Multi fans one Publish out to several
// transports; the noop service stands in when nothing is configured.
//
// Engine code depends only on the Service interface.
package notifications
