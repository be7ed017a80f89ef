package cliconfig

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Owner = "acme"
	cfg.S3Bucket = "backups"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IncludePrivate {
		t.Error("IncludePrivate should default to true")
	}
	if cfg.IncludeForks {
		t.Error("IncludeForks should default to false")
	}
	if cfg.RetentionCount != 7 {
		t.Errorf("RetentionCount = %d, want 7", cfg.RetentionCount)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.ScheduleMode != "cron" || cfg.ScheduleHour != 2 {
		t.Errorf("schedule defaults wrong: mode=%q hour=%d", cfg.ScheduleMode, cfg.ScheduleHour)
	}
	if cfg.S3Region != "us-east-1" || !cfg.S3ForcePathStyle {
		t.Error("S3 defaults wrong")
	}
	if cfg.AlertLevel != "errors" {
		t.Errorf("AlertLevel = %q, want errors", cfg.AlertLevel)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without owner")
	}

	cfg.Owner = "acme"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without bucket")
	}

	cfg.S3Bucket = "backups"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateClampsAndDerives(t *testing.T) {
	cfg := validConfig()
	cfg.Workers = -3
	cfg.S3Prefix = "/github/backups/"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want clamp to 1", cfg.Workers)
	}
	if cfg.S3Prefix != "github/backups" {
		t.Errorf("S3Prefix = %q, want slashes trimmed", cfg.S3Prefix)
	}
}

func TestValidateSchedule(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid cron", func(c *Config) {}, false},
		{"valid interval", func(c *Config) { c.ScheduleMode = "interval"; c.ScheduleIntervalHours = 6 }, false},
		{"bad mode", func(c *Config) { c.ScheduleMode = "sometimes" }, true},
		{"hour too big", func(c *Config) { c.ScheduleHour = 24 }, true},
		{"minute negative", func(c *Config) { c.ScheduleMinute = -1 }, true},
		{"bad day", func(c *Config) { c.ScheduleDayOfWeek = "7" }, true},
		{"day list", func(c *Config) { c.ScheduleDayOfWeek = "0,4" }, false},
		{"interval too long", func(c *Config) { c.ScheduleIntervalHours = 200 }, true},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestValidateAlerting(t *testing.T) {
	cfg := validConfig()
	cfg.AlertLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bad alert level")
	}

	cfg = validConfig()
	cfg.AlertChannels = "webhook,pager"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown channel")
	}

	cfg = validConfig()
	cfg.AlertLevel = "all"
	cfg.AlertChannels = "Webhook, teams , email"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	got := cfg.AlertChannelList()
	if strings.Join(got, "|") != "webhook|teams|email" {
		t.Errorf("AlertChannelList() = %v", got)
	}
}

func TestSMTPRecipients(t *testing.T) {
	cfg := validConfig()
	cfg.SMTPTo = "ops@example.com, backup@example.com,"

	got := cfg.SMTPRecipients()
	if len(got) != 2 || got[0] != "ops@example.com" || got[1] != "backup@example.com" {
		t.Errorf("SMTPRecipients() = %v", got)
	}
}

func TestIsAuthenticated(t *testing.T) {
	cfg := validConfig()
	cfg.Token = ""
	if cfg.IsAuthenticated() {
		t.Error("empty token should not be authenticated")
	}
	cfg.Token = "ghp_x"
	if !cfg.IsAuthenticated() {
		t.Error("token should be authenticated")
	}
}
