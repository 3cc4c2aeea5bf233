// Command vanguard is the personal-safety CLI: it sends SOS alerts to
// emergency contacts, records video evidence into a local gallery, and shares
// or exports saved recordings.
package main
