package alert

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"vanguard/internal/location"
)

const (
	messagePrefix       = "🚨 HELP! I am in danger. My location: "
	locationUnavailable = "location unavailable"
)

// MapLink renders https://maps.<provider>/?q=<lat>,<lng>.
func MapLink(provider string, sample location.Sample) string {
	return "https://maps." + provider + "/?q=" +
		strconv.FormatFloat(sample.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(sample.Lng, 'f', -1, 64)
}

// ComposeMessage builds the distress text. A nil sample yields the
// "location unavailable" marker; a non-empty note is appended as a suffix.
func ComposeMessage(provider string, sample *location.Sample, note string) string {
	where := locationUnavailable
	if sample != nil {
		where = MapLink(provider, *sample)
	}
	message := messagePrefix + where
	if note = strings.TrimSpace(note); note != "" {
		message += " " + note
	}
	return message
}

// SanitizePhone keeps digits and a single leading plus sign. Full-width
// digits, as typed on some phone keyboards, are folded to ASCII first.
func SanitizePhone(raw string) string {
	folded := width.Narrow.String(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	if b.String() == "+" {
		return ""
	}
	return b.String()
}

// EncodeText percent-encodes s for a query value, using %20 for spaces.
func EncodeText(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// AppLink renders <scheme>://send?phone=..&text=... The phone must already be sanitized.
func AppLink(scheme, phone, message string) string {
	return scheme + "://send?phone=" + phone + "&text=" + EncodeText(message)
}

// WebLink renders https://<host>/send?phone=..&text=...
func WebLink(host, phone, message string) string {
	return "https://" + host + "/send?phone=" + phone + "&text=" + EncodeText(message)
}
