// Package recording runs one evidence capture at a time.
//
// A Session walks Idle → Acquiring → Streaming → Recording → Stopped → Idle.
// Open acquires the camera stream, StartRecording begins collecting chunks,
// and Stop concatenates them in arrival order into one Recording. Every exit
// path releases the stream: an explicit Stop, Close on shutdown, the stream
// ending on its own, or the device disappearing. Stop is idempotent and always
// leaves the session Idle.
//
// When a recording finishes the session hands it to a Completion before
// returning to Idle. Handoff is the standard completion: it saves the payload
// to the evidence store, then offers it to the sharing pipeline, logging
// failures instead of returning them so a stop always succeeds.
//
// DeviceSource reads an already encoded stream from a device node or FIFO.
package recording
