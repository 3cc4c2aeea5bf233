// Package sos coordinates an emergency trigger.
//
// Engine ties the location tracker, the contact registry, the alert
// dispatcher, and the recording session together. Trigger reads the latest
// location and the contact list, dispatches alerts, and then stops any active
// recording so the evidence is saved, offered for sharing, and uploaded when
// an account is configured. Each step degrades on its own: a missing camera
// never blocks the alert, and a failed alert never blocks saving the video.
package sos
