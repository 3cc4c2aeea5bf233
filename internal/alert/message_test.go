package alert_test

import (
	"testing"

	"vanguard/internal/alert"
	"vanguard/internal/location"
)

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 010-0199", "+15550100199"},
		{"00 44 20 7946 0958", "00442079460958"},
		{"555+123", "555123"},
		{"++44 1234", "+441234"},
		{"＋８１ ９０-１２３４", "+81901234"},
		{"+", ""},
		{"n/a", ""},
	}
	for _, tt := range tests {
		if got := alert.SanitizePhone(tt.in); got != tt.want {
			t.Errorf("SanitizePhone(%q) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestLinks(t *testing.T) {
	msg := alert.ComposeMessage("google.com", &location.Sample{Lat: 1.5, Lng: 2}, "")
	if msg != "🚨 HELP! I am in danger. My location: https://maps.google.com/?q=1.5,2" {
		t.Fatalf("message = %q", msg)
	}

	app := alert.AppLink("whatsapp", "+15550100", "a b&c")
	if app != "whatsapp://send?phone=+15550100&text=a%20b%26c" {
		t.Fatalf("app link = %q", app)
	}
	web := alert.WebLink("web.whatsapp.com", "15550100", "hi?")
	if web != "https://web.whatsapp.com/send?phone=15550100&text=hi%3F" {
		t.Fatalf("web link = %q", web)
	}
}
