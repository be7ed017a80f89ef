package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config for TOML parsing. Booleans are pointers so an
// absent key is distinguishable from an explicit false; the schedule hour
// and minute are pointers for the same reason, since zero is a valid value
// for both.
type FileConfig struct {
	Owner           string `toml:"github_owner"`
	Token           string `toml:"github_pat"`
	IncludePrivate  *bool  `toml:"github_backup_private"`
	IncludeForks    *bool  `toml:"github_backup_forks"`
	IncludeArchived *bool  `toml:"github_backup_archived"`

	RetentionCount  int    `toml:"backup_retention_count"`
	IncludeMetadata *bool  `toml:"backup_include_metadata"`
	IncludeWiki     *bool  `toml:"backup_include_wiki"`
	Incremental     *bool  `toml:"backup_incremental"`
	Workers         int    `toml:"backup_workers"`
	DataDir         string `toml:"data_dir"`

	ScheduleEnabled       *bool  `toml:"backup_schedule_enabled"`
	ScheduleMode          string `toml:"backup_schedule_mode"`
	ScheduleHour          *int   `toml:"backup_schedule_hour"`
	ScheduleMinute        *int   `toml:"backup_schedule_minute"`
	ScheduleDayOfWeek     string `toml:"backup_schedule_day_of_week"`
	ScheduleIntervalHours int    `toml:"backup_schedule_interval_hours"`

	S3EndpointURL        string `toml:"s3_endpoint_url"`
	S3Bucket             string `toml:"s3_bucket"`
	S3AccessKey          string `toml:"s3_access_key"`
	S3SecretKey          string `toml:"s3_secret_key"`
	S3Region             string `toml:"s3_region"`
	S3Prefix             string `toml:"s3_prefix"`
	S3MultipartThreshold int64  `toml:"s3_multipart_threshold"`
	S3MultipartChunkSize int64  `toml:"s3_multipart_chunk_size"`

	AlertEnabled    *bool  `toml:"alert_enabled"`
	AlertLevel      string `toml:"alert_level"`
	AlertChannels   string `toml:"alert_channels"`
	WebhookURL      string `toml:"webhook_url"`
	WebhookSecret   string `toml:"webhook_secret"`
	TeamsWebhookURL string `toml:"teams_webhook_url"`
	SMTPHost        string `toml:"smtp_host"`
	SMTPPort        int    `toml:"smtp_port"`
	SMTPUser        string `toml:"smtp_user"`
	SMTPPassword    string `toml:"smtp_password"`
	SMTPFrom        string `toml:"smtp_from"`
	SMTPFromName    string `toml:"smtp_from_name"`
	SMTPTo          string `toml:"smtp_to"`

	LogLevel      string `toml:"log_level"`
	UploadRetries int    `toml:"upload_retries"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.repovault/config.toml if the user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".repovault", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("owner", fc.Owner, &cfg.Owner)
	s.setString("token", fc.Token, &cfg.Token)
	s.setBool("private", fc.IncludePrivate, &cfg.IncludePrivate)
	s.setBool("forks", fc.IncludeForks, &cfg.IncludeForks)
	s.setBool("archived", fc.IncludeArchived, &cfg.IncludeArchived)

	s.setInt("retention-count", fc.RetentionCount, &cfg.RetentionCount)
	s.setBool("metadata", fc.IncludeMetadata, &cfg.IncludeMetadata)
	s.setBool("wiki", fc.IncludeWiki, &cfg.IncludeWiki)
	s.setBool("incremental", fc.Incremental, &cfg.Incremental)
	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)

	s.setBool("schedule", fc.ScheduleEnabled, &cfg.ScheduleEnabled)
	s.setString("schedule-mode", fc.ScheduleMode, &cfg.ScheduleMode)
	s.setIntPtr("schedule-hour", fc.ScheduleHour, &cfg.ScheduleHour)
	s.setIntPtr("schedule-minute", fc.ScheduleMinute, &cfg.ScheduleMinute)
	s.setString("schedule-days", fc.ScheduleDayOfWeek, &cfg.ScheduleDayOfWeek)
	s.setInt("schedule-interval", fc.ScheduleIntervalHours, &cfg.ScheduleIntervalHours)

	s.setString("s3-endpoint", fc.S3EndpointURL, &cfg.S3EndpointURL)
	s.setString("bucket", fc.S3Bucket, &cfg.S3Bucket)
	s.setString("s3-access-key", fc.S3AccessKey, &cfg.S3AccessKey)
	s.setString("s3-secret-key", fc.S3SecretKey, &cfg.S3SecretKey)
	s.setString("s3-region", fc.S3Region, &cfg.S3Region)
	s.setString("s3-prefix", fc.S3Prefix, &cfg.S3Prefix)
	if fc.S3MultipartThreshold > 0 && !changed["s3-multipart-threshold"] {
		cfg.S3MultipartThreshold = fc.S3MultipartThreshold
	}
	if fc.S3MultipartChunkSize > 0 && !changed["s3-multipart-chunk-size"] {
		cfg.S3MultipartChunkSize = fc.S3MultipartChunkSize
	}

	s.setBool("alert", fc.AlertEnabled, &cfg.AlertEnabled)
	s.setString("alert-level", fc.AlertLevel, &cfg.AlertLevel)
	s.setString("alert-channels", fc.AlertChannels, &cfg.AlertChannels)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("webhook-secret", fc.WebhookSecret, &cfg.WebhookSecret)
	s.setString("teams-webhook-url", fc.TeamsWebhookURL, &cfg.TeamsWebhookURL)
	s.setString("smtp-host", fc.SMTPHost, &cfg.SMTPHost)
	s.setInt("smtp-port", fc.SMTPPort, &cfg.SMTPPort)
	s.setString("smtp-user", fc.SMTPUser, &cfg.SMTPUser)
	s.setString("smtp-password", fc.SMTPPassword, &cfg.SMTPPassword)
	s.setString("smtp-from", fc.SMTPFrom, &cfg.SMTPFrom)
	s.setString("smtp-from-name", fc.SMTPFromName, &cfg.SMTPFromName)
	s.setString("smtp-to", fc.SMTPTo, &cfg.SMTPTo)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setInt("upload-retries", fc.UploadRetries, &cfg.UploadRetries)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
