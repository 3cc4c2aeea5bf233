// Package alert turns an SOS trigger into outbound messages.
//
// Dispatch picks targets from the contact list, builds one distress message
// with a map link (or the literal "location unavailable" marker), and opens a
// messaging-app deep link for every target right away. A web fallback for the
// same target is scheduled after a fixed delay and fires no matter what the
// deep link did: there is no signal that the app handled the link, so both are
// always issued. Success means every attempt was issued or scheduled, never
// that a message was delivered.
//
// Two targeting modes exist. Broadcast messages every contact and is what the
// general SOS button uses. Primary messages only the most recently added
// priority contact and backs the map SOS flow. ModeAuto picks primary when any
// priority contact exists and broadcast otherwise.
package alert
