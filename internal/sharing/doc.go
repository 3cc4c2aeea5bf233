// Package sharing offers a saved recording to the user.
//
// Pipeline.Offer tries the native share surface first when one is configured
// and able to take the file. The user cancelling the share sheet is a normal,
// silent outcome. Any other share failure falls through to a direct download
// into the downloads directory, followed by a notice that the recording is
// also in the gallery. Download is the last step: when it fails the user is
// told, and nothing is retried. Offer never returns an error.
//
// CommandSurface shares by running a helper program with the file path, so a
// desktop portal, a KDE Connect or Bluetooth script, or any tool that accepts a
// path can act as the share sheet.
package sharing
