package main

import (
	"encoding/json"
	"strings"
	"testing"

	"vanguard/internal/testsupport"
)

func TestSOSWithoutContactsPromptsSetup(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sos", "--location-wait", "0s"}, env.configPath)
	if err == nil {
		t.Fatal("sos without contacts should fail")
	}
	requireContains(t, out, "Please add an SOS Contact first!")
	if urls := openedURLs(t, env.cfg); len(urls) != 0 {
		t.Fatalf("no link may be opened without contacts, got %v", urls)
	}
}

func TestSOSBroadcastOpensAppAndWebLinks(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStaticLocation(40.7128, -74.006))
	for _, args := range [][]string{{"Ann", "+1 555 0100"}, {"Bob", "+1 555 0101"}} {
		if _, _, err := runCLI(t, append([]string{"contacts", "add"}, args...), env.configPath); err != nil {
			t.Fatalf("contacts add: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"sos", "--mode", "broadcast", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("sos: %v\n%s", err, out)
	}
	var report sosJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if !report.Issued || report.Status != "SOS SENT TO 2 CONTACTS!" || report.TriggerID == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Location == nil || report.Location.Lat != 40.7128 {
		t.Fatalf("expected static location, got %+v", report.Location)
	}
	requireContains(t, report.Message, "https://maps.google.com/?q=40.7128,-74.006")

	urls := openedURLs(t, env.cfg)
	var app, web int
	for _, u := range urls {
		switch {
		case strings.HasPrefix(u, "whatsapp://send?phone=+15550100&text="), strings.HasPrefix(u, "whatsapp://send?phone=+15550101&text="):
			app++
		case strings.HasPrefix(u, "https://web.whatsapp.com/send?phone="):
			web++
		}
	}
	if app != 2 || web != 2 {
		t.Fatalf("expected two app and two web links, got %v", urls)
	}
}

func TestSOSPrimaryTargetsPriorityContact(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"contacts", "add", "Ann", "+15550100"}, env.configPath); err != nil {
		t.Fatalf("contacts add: %v", err)
	}
	if _, _, err := runCLI(t, []string{"contacts", "add", "-p", "Bob", "+15550101"}, env.configPath); err != nil {
		t.Fatalf("contacts add: %v", err)
	}

	out, _, err := runCLI(t, []string{"sos", "--location-wait", "0s"}, env.configPath)
	if err != nil {
		t.Fatalf("sos: %v", err)
	}
	requireContains(t, out, "SOS SENT TO Bob!")
	requireContains(t, out, "Location: unavailable")
	for _, u := range openedURLs(t, env.cfg) {
		if strings.Contains(u, "15550100") {
			t.Fatalf("primary mode must not alert Ann: %s", u)
		}
	}
}
