package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	// Keep godotenv from picking up a .env in the package directory.
	t.Chdir(dir)
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  contacts:
    spreadsheet_id: abc
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.Source.Kind != SourceKindSheets || config.Source.Mode != SourceModeSingle {
		t.Fatalf("unexpected source defaults %+v", config.Source)
	}
	if config.Source.CredentialsFile != "credentials.json" || config.Source.Contacts.Sheet != "Sheet1" {
		t.Fatalf("unexpected source defaults %+v", config.Source)
	}
	if config.Browser.Host != "web.whatsapp.com" || !filepath.IsAbs(config.Browser.UserDataDir) {
		t.Fatalf("unexpected browser defaults %+v", config.Browser)
	}
	if !config.Browser.QREnabled() || !config.Dispatch.ConfirmExitEnabled() {
		t.Fatal("expected QR and exit confirmation enabled by default")
	}
	if config.Dispatch.SendMechanism != SendMechanismClick {
		t.Fatalf("unexpected send mechanism %q", config.Dispatch.SendMechanism)
	}

	durations := map[string][2]time.Duration{
		"login_wait":       {config.Browser.LoginWaitDuration(), 120 * time.Second},
		"navigate_timeout": {config.Dispatch.NavigateTimeoutDuration(), 30 * time.Second},
		"ready_timeout":    {config.Dispatch.ReadyTimeoutDuration(), 60 * time.Second},
		"send_timeout":     {config.Dispatch.SendTimeoutDuration(), 10 * time.Second},
		"poll_interval":    {config.Dispatch.PollIntervalDuration(), 500 * time.Millisecond},
		"pause":            {config.Dispatch.PauseDuration(), 5 * time.Second},
	}
	for name, d := range durations {
		if d[0] != d[1] {
			t.Fatalf("%s: expected %v, got %v", name, d[1], d[0])
		}
	}
	if config.Logging.Level != "info" {
		t.Fatalf("unexpected log level %q", config.Logging.Level)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: csv
  mode: campaign
  contacts:
    path: users.csv
  campaigns:
    path: campaigns.csv
browser:
  login_wait: 30s
  show_qr: false
dispatch:
  send_mechanism: type
  ready_timeout: 45s
  pause: 0s
  confirm_exit: false
rate_limiting:
  enabled: true
  messages_per_minute: 10
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Source.CredentialsFile != "" {
		t.Fatalf("csv source should not default a credentials file, got %q", config.Source.CredentialsFile)
	}
	if config.Browser.LoginWaitDuration() != 30*time.Second || config.Browser.QREnabled() {
		t.Fatalf("unexpected browser config %+v", config.Browser)
	}
	if config.Dispatch.SendMechanism != SendMechanismType || config.Dispatch.ReadyTimeoutDuration() != 45*time.Second {
		t.Fatalf("unexpected dispatch config %+v", config.Dispatch)
	}
	if config.Dispatch.PauseDuration() != 0 {
		t.Fatalf("expected explicit zero pause, got %v", config.Dispatch.PauseDuration())
	}
	if config.Dispatch.ConfirmExitEnabled() {
		t.Fatal("expected exit confirmation disabled")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  mode: campaign
`)
	t.Setenv("WA_CREDENTIALS_FILE", "/secrets/sa.json")
	t.Setenv("WA_CONTACTS_SPREADSHEET_ID", "contacts-id")
	t.Setenv("WA_CAMPAIGNS_SPREADSHEET_ID", "campaigns-id")
	t.Setenv("WA_HEADLESS", "true")
	t.Setenv("WA_LOG_LEVEL", "debug")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Source.CredentialsFile != "/secrets/sa.json" ||
		config.Source.Contacts.SpreadsheetID != "contacts-id" ||
		config.Source.Campaigns.SpreadsheetID != "campaigns-id" {
		t.Fatalf("env overrides not applied: %+v", config.Source)
	}
	if !config.Browser.Headless || config.Logging.Level != "debug" {
		t.Fatalf("env overrides not applied: headless=%v level=%s", config.Browser.Headless, config.Logging.Level)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: sheets
`)
	if err := os.WriteFile(".env", []byte("WA_CONTACTS_SPREADSHEET_ID=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable for the whole process.
	t.Cleanup(func() { os.Unsetenv("WA_CONTACTS_SPREADSHEET_ID") })

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Source.Contacts.SpreadsheetID != "from-dotenv" {
		t.Fatalf("expected spreadsheet id from .env, got %q", config.Source.Contacts.SpreadsheetID)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing spreadsheet", "source:\n  kind: sheets\n", "spreadsheet_id"},
		{"missing campaigns spreadsheet", "source:\n  mode: campaign\n  contacts:\n    spreadsheet_id: a\n", "campaigns.spreadsheet_id"},
		{"missing csv path", "source:\n  kind: csv\n", "contacts.path"},
		{"unknown kind", "source:\n  kind: excel\n", "unknown kind"},
		{"unknown mode", "source:\n  mode: both\n  contacts:\n    spreadsheet_id: a\n", "unknown mode"},
		{"unknown mechanism", "source:\n  contacts:\n    spreadsheet_id: a\ndispatch:\n  send_mechanism: paste\n", "unknown mechanism"},
		{"bad duration", "source:\n  contacts:\n    spreadsheet_id: a\ndispatch:\n  pause: soon\n", "dispatch.pause"},
		{"negative duration", "source:\n  contacts:\n    spreadsheet_id: a\ndispatch:\n  ready_timeout: -1s\n", "must be >= 0"},
		{"rate limit without rate", "source:\n  contacts:\n    spreadsheet_id: a\nrate_limiting:\n  enabled: true\n", "messages_per_minute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
