package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables.
// It respects flags that have been explicitly set (changed map).
// Variable names follow the deployment convention (GITHUB_*, BACKUP_*, S3_*,
// ALERT_*, SMTP_*) rather than a binary-specific prefix, so the same
// environment drives container and bare-metal installs alike.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("owner", os.Getenv("GITHUB_OWNER"), &cfg.Owner)
	s.setString("token", os.Getenv("GITHUB_PAT"), &cfg.Token)
	s.setBoolFromString("private", os.Getenv("GITHUB_BACKUP_PRIVATE"), &cfg.IncludePrivate)
	s.setBoolFromString("forks", os.Getenv("GITHUB_BACKUP_FORKS"), &cfg.IncludeForks)
	s.setBoolFromString("archived", os.Getenv("GITHUB_BACKUP_ARCHIVED"), &cfg.IncludeArchived)

	if err := s.setIntFromString("retention-count", os.Getenv("BACKUP_RETENTION_COUNT"), &cfg.RetentionCount); err != nil {
		return err
	}
	s.setBoolFromString("metadata", os.Getenv("BACKUP_INCLUDE_METADATA"), &cfg.IncludeMetadata)
	s.setBoolFromString("wiki", os.Getenv("BACKUP_INCLUDE_WIKI"), &cfg.IncludeWiki)
	s.setBoolFromString("incremental", os.Getenv("BACKUP_INCREMENTAL"), &cfg.Incremental)
	if err := s.setIntFromString("workers", os.Getenv("BACKUP_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	s.setString("data-dir", os.Getenv("DATA_DIR"), &cfg.DataDir)

	s.setBoolFromString("schedule", os.Getenv("BACKUP_SCHEDULE_ENABLED"), &cfg.ScheduleEnabled)
	s.setString("schedule-mode", os.Getenv("BACKUP_SCHEDULE_MODE"), &cfg.ScheduleMode)
	if err := s.setIntFromString("schedule-hour", os.Getenv("BACKUP_SCHEDULE_HOUR"), &cfg.ScheduleHour); err != nil {
		return err
	}
	if err := s.setIntFromString("schedule-minute", os.Getenv("BACKUP_SCHEDULE_MINUTE"), &cfg.ScheduleMinute); err != nil {
		return err
	}
	s.setString("schedule-days", os.Getenv("BACKUP_SCHEDULE_DAY_OF_WEEK"), &cfg.ScheduleDayOfWeek)
	if err := s.setIntFromString("schedule-interval", os.Getenv("BACKUP_SCHEDULE_INTERVAL_HOURS"), &cfg.ScheduleIntervalHours); err != nil {
		return err
	}

	s.setString("s3-endpoint", os.Getenv("S3_ENDPOINT_URL"), &cfg.S3EndpointURL)
	s.setString("bucket", os.Getenv("S3_BUCKET"), &cfg.S3Bucket)
	s.setString("s3-access-key", os.Getenv("S3_ACCESS_KEY"), &cfg.S3AccessKey)
	s.setString("s3-secret-key", os.Getenv("S3_SECRET_KEY"), &cfg.S3SecretKey)
	s.setString("s3-region", os.Getenv("S3_REGION"), &cfg.S3Region)
	s.setString("s3-prefix", os.Getenv("S3_PREFIX"), &cfg.S3Prefix)
	if err := s.setInt64FromString("s3-multipart-threshold", os.Getenv("S3_MULTIPART_THRESHOLD"), &cfg.S3MultipartThreshold); err != nil {
		return err
	}
	if err := s.setInt64FromString("s3-multipart-chunk-size", os.Getenv("S3_MULTIPART_CHUNK_SIZE"), &cfg.S3MultipartChunkSize); err != nil {
		return err
	}

	s.setBoolFromString("alert", os.Getenv("ALERT_ENABLED"), &cfg.AlertEnabled)
	s.setString("alert-level", os.Getenv("ALERT_LEVEL"), &cfg.AlertLevel)
	s.setString("alert-channels", os.Getenv("ALERT_CHANNELS"), &cfg.AlertChannels)
	s.setString("webhook-url", os.Getenv("WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("webhook-secret", os.Getenv("WEBHOOK_SECRET"), &cfg.WebhookSecret)
	s.setString("teams-webhook-url", os.Getenv("TEAMS_WEBHOOK_URL"), &cfg.TeamsWebhookURL)
	s.setString("smtp-host", os.Getenv("SMTP_HOST"), &cfg.SMTPHost)
	if err := s.setIntFromString("smtp-port", os.Getenv("SMTP_PORT"), &cfg.SMTPPort); err != nil {
		return err
	}
	s.setString("smtp-user", os.Getenv("SMTP_USER"), &cfg.SMTPUser)
	s.setString("smtp-password", os.Getenv("SMTP_PASSWORD"), &cfg.SMTPPassword)
	s.setString("smtp-from", os.Getenv("SMTP_FROM"), &cfg.SMTPFrom)
	s.setString("smtp-from-name", os.Getenv("SMTP_FROM_NAME"), &cfg.SMTPFromName)
	s.setString("smtp-to", os.Getenv("SMTP_TO"), &cfg.SMTPTo)

	s.setString("log-level", os.Getenv("LOG_LEVEL"), &cfg.LogLevel)

	return nil
}
