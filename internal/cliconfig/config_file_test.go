package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, `
github_owner = "acme"
github_backup_forks = true
backup_retention_count = 14
backup_incremental = false
s3_bucket = "file-bucket"
s3_endpoint_url = "http://minio:9000"
alert_level = "all"
alert_channels = "webhook"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, nil); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.Owner != "acme" || cfg.S3Bucket != "file-bucket" {
		t.Errorf("identity fields not applied: %q %q", cfg.Owner, cfg.S3Bucket)
	}
	if !cfg.IncludeForks {
		t.Error("IncludeForks should be true from file")
	}
	if cfg.Incremental {
		t.Error("explicit false in file must override the true default")
	}
	if cfg.RetentionCount != 14 {
		t.Errorf("RetentionCount = %d, want 14", cfg.RetentionCount)
	}
	if cfg.S3EndpointURL != "http://minio:9000" {
		t.Errorf("S3EndpointURL = %q", cfg.S3EndpointURL)
	}
	if cfg.AlertLevel != "all" {
		t.Errorf("AlertLevel = %q", cfg.AlertLevel)
	}
}

func TestApplyFileConfigRespectsFlags(t *testing.T) {
	fc := FileConfig{Owner: "file-owner", RetentionCount: 3}

	cfg := DefaultConfig()
	cfg.Owner = "flag-owner"

	changed := map[string]bool{"owner": true}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.Owner != "flag-owner" {
		t.Errorf("Owner = %q, flag must win over file", cfg.Owner)
	}
	if cfg.RetentionCount != 3 {
		t.Errorf("RetentionCount = %d, file applies when no flag set", cfg.RetentionCount)
	}
}

func TestApplyFileConfigAcceptsMidnightSchedule(t *testing.T) {
	path := writeConfigFile(t, `
backup_schedule_hour = 0
backup_schedule_minute = 0
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, nil); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.ScheduleHour != 0 {
		t.Errorf("ScheduleHour = %d, want 0 (midnight is a valid hour)", cfg.ScheduleHour)
	}
	if cfg.ScheduleMinute != 0 {
		t.Errorf("ScheduleMinute = %d, want 0", cfg.ScheduleMinute)
	}
}

func TestApplyFileConfigLeavesScheduleWhenAbsent(t *testing.T) {
	path := writeConfigFile(t, `github_owner = "acme"`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, nil); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.ScheduleHour != 2 {
		t.Errorf("ScheduleHour = %d, want default 2 when the key is absent", cfg.ScheduleHour)
	}
}

func TestLoadFileConfigRejectsBadTOML(t *testing.T) {
	path := writeConfigFile(t, "github_owner = [broken")
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestFileExists(t *testing.T) {
	path := writeConfigFile(t, "")
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(filepath.Join(t.TempDir(), "missing.toml")) {
		t.Error("FileExists() = true for missing file")
	}
}
