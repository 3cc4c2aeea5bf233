// Package location tracks the device position for alert messages.
//
// A Tracker watches one Source and keeps only the freshest Sample; every fix
// overwrites the previous one. Failures never escape to callers: permission or
// hardware problems clear the latest sample and surface a status string that
// the CLI and notices display. Latest returns nil, not a zero coordinate, when
// no fix is known.
//
// Two sources ship with the package: StaticSource reports a fixed configured
// coordinate, and NMEASource reads GGA/RMC sentences from a serial GPS device.
package location
