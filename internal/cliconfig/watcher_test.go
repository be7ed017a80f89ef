package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validBaseConfig() Config {
	cfg := DefaultConfig()
	cfg.Owner = "acme"
	cfg.Token = "ghp_test"
	cfg.S3Bucket = "backups"
	return cfg
}

func TestWatcher_SnapshotReturnsInitial(t *testing.T) {
	cfg := validBaseConfig()
	cfg.RetentionCount = 9

	w := NewWatcher("", cfg, nil)

	got := w.Snapshot()
	if got.RetentionCount != 9 || got.Owner != "acme" {
		t.Errorf("Snapshot() = %+v, want seeded config", got)
	}
}

func TestWatcher_ReloadAppliesDynamicFields(t *testing.T) {
	path := writeConfigFile(t, `
backup_retention_count = 21
backup_incremental = false
backup_workers = 8
backup_schedule_hour = 0
alert_level = "all"
`)

	w := NewWatcher(path, validBaseConfig(), nil)
	w.reload()

	got := w.Snapshot()
	if got.RetentionCount != 21 {
		t.Errorf("RetentionCount = %d, want 21", got.RetentionCount)
	}
	if got.Incremental {
		t.Error("Incremental should be false after reload")
	}
	if got.Workers != 8 {
		t.Errorf("Workers = %d, want 8", got.Workers)
	}
	if got.AlertLevel != "all" {
		t.Errorf("AlertLevel = %q, want all", got.AlertLevel)
	}
	if got.ScheduleHour != 0 {
		t.Errorf("ScheduleHour = %d, want 0", got.ScheduleHour)
	}
}

func TestWatcher_ReloadNeverTouchesIdentity(t *testing.T) {
	path := writeConfigFile(t, `
github_owner = "attacker"
github_pat = "stolen"
s3_bucket = "other-bucket"
backup_retention_count = 2
`)

	w := NewWatcher(path, validBaseConfig(), nil)
	w.reload()

	got := w.Snapshot()
	if got.Owner != "acme" || got.Token != "ghp_test" || got.S3Bucket != "backups" {
		t.Errorf("identity fields changed on reload: owner=%q bucket=%q", got.Owner, got.S3Bucket)
	}
	if got.RetentionCount != 2 {
		t.Errorf("RetentionCount = %d, dynamic field should still apply", got.RetentionCount)
	}
}

func TestWatcher_ReloadRejectsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `alert_level = "shouting"`)

	cfg := validBaseConfig()
	cfg.RetentionCount = 5

	w := NewWatcher(path, cfg, nil)
	w.reload()

	got := w.Snapshot()
	if got.AlertLevel != "errors" {
		t.Errorf("AlertLevel = %q, invalid reload must keep previous config", got.AlertLevel)
	}
	if got.RetentionCount != 5 {
		t.Errorf("RetentionCount = %d, want 5 unchanged", got.RetentionCount)
	}
}

func TestWatcher_ReloadKeepsPreviousOnBadTOML(t *testing.T) {
	path := writeConfigFile(t, `backup_retention_count = [broken`)

	cfg := validBaseConfig()
	cfg.RetentionCount = 5

	w := NewWatcher(path, cfg, nil)
	w.reload()

	if got := w.Snapshot(); got.RetentionCount != 5 {
		t.Errorf("RetentionCount = %d, want 5 unchanged after parse failure", got.RetentionCount)
	}
}

func TestWatcher_RunDetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("backup_retention_count = 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, validBaseConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("backup_retention_count = 30\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if w.Snapshot().RetentionCount == 30 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("RetentionCount = %d, want 30 after file change", w.Snapshot().RetentionCount)
}

func TestWatcher_RunIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("backup_retention_count = 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, validBaseConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(200 * time.Millisecond)

	other := filepath.Join(dir, "notes.toml")
	if err := os.WriteFile(other, []byte("backup_retention_count = 99\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	if got := w.Snapshot().RetentionCount; got == 99 {
		t.Errorf("RetentionCount = %d, unrelated file must not trigger reload", got)
	}
}
