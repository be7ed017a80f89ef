package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the full configuration for repovault. It is validated once at
// startup and passed by reference into every component; recognized options
// are named fields with documented defaults, never untyped key lookups.
type Config struct {
	// GitHub
	Owner           string // organization or username to back up (required)
	Token           string // personal access token; empty means public repos only
	IncludePrivate  bool   // include private repositories (default true)
	IncludeForks    bool   // include forked repositories (default false)
	IncludeArchived bool   // include archived repositories (default true)

	// Backup
	RetentionCount  int    // snapshots to keep per repository (default 7)
	IncludeMetadata bool   // export issues, PRs and releases (default true)
	IncludeWiki     bool   // capture wiki repositories (default true)
	Incremental     bool   // skip repositories unchanged since last run (default true)
	Workers         int    // concurrent repository captures (default 4)
	DataDir         string // local directory for state and scratch clones (default /data)

	// Schedule
	ScheduleEnabled       bool   // run on a schedule when serving (default true)
	ScheduleMode          string // "cron" or "interval" (default cron)
	ScheduleHour          int    // hour for cron mode, 0-23 (default 2)
	ScheduleMinute        int    // minute for cron mode, 0-59 (default 0)
	ScheduleDayOfWeek     string // "*" or comma-separated 0-6, 0=Monday (default "*")
	ScheduleIntervalHours int    // hours between runs in interval mode (default 24)

	// S3
	S3EndpointURL        string // custom endpoint for S3-compatible stores; empty for AWS
	S3Bucket             string // target bucket (required)
	S3AccessKey          string
	S3SecretKey          string
	S3Region             string // default us-east-1
	S3Prefix             string // optional key prefix; empty stores directly under {owner}/
	S3MultipartThreshold int64  // multipart upload threshold in bytes (default 100MB)
	S3MultipartChunkSize int64  // multipart part size in bytes (default 50MB)
	S3ForcePathStyle     bool   // path-style addressing, required for MinIO (default true)

	// Alerting
	AlertEnabled    bool
	AlertLevel      string // "errors", "warnings" or "all" (default errors)
	AlertChannels   string // comma-separated: webhook,teams,email
	WebhookURL      string
	WebhookSecret   string // optional HMAC secret for the X-Signature header
	TeamsWebhookURL string
	SMTPHost        string
	SMTPPort        int // default 587
	SMTPUser        string
	SMTPPassword    string
	SMTPFrom        string
	SMTPFromName    string // default "repovault"
	SMTPTo          string // comma-separated recipients

	// Application
	LogLevel      string // default info
	UploadRetries int    // retries per artifact upload (default 3)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		IncludePrivate:  true,
		IncludeArchived: true,

		RetentionCount:  7,
		IncludeMetadata: true,
		IncludeWiki:     true,
		Incremental:     true,
		Workers:         4,
		DataDir:         "/data",

		ScheduleEnabled:       true,
		ScheduleMode:          "cron",
		ScheduleHour:          2,
		ScheduleDayOfWeek:     "*",
		ScheduleIntervalHours: 24,

		S3Region:             "us-east-1",
		S3MultipartThreshold: 100 << 20,
		S3MultipartChunkSize: 50 << 20,
		S3ForcePathStyle:     true,

		AlertLevel:   "errors",
		SMTPPort:     587,
		SMTPFromName: "repovault",

		LogLevel:      "info",
		UploadRetries: 3,

		Token: os.Getenv("GITHUB_PAT"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("github owner is required")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}

	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.UploadRetries < 0 {
		c.UploadRetries = 0
	}
	if c.DataDir == "" {
		c.DataDir = "/data"
	}
	c.S3Prefix = strings.Trim(c.S3Prefix, "/")

	switch c.ScheduleMode {
	case "cron", "interval":
	default:
		return fmt.Errorf("schedule mode must be cron or interval, got %q", c.ScheduleMode)
	}
	if c.ScheduleHour < 0 || c.ScheduleHour > 23 {
		return fmt.Errorf("schedule hour must be 0-23, got %d", c.ScheduleHour)
	}
	if c.ScheduleMinute < 0 || c.ScheduleMinute > 59 {
		return fmt.Errorf("schedule minute must be 0-59, got %d", c.ScheduleMinute)
	}
	if err := validateDayOfWeek(c.ScheduleDayOfWeek); err != nil {
		return err
	}
	if c.ScheduleIntervalHours < 1 || c.ScheduleIntervalHours > 168 {
		return fmt.Errorf("schedule interval must be 1-168 hours, got %d", c.ScheduleIntervalHours)
	}

	switch c.AlertLevel {
	case "errors", "warnings", "all":
	default:
		return fmt.Errorf("alert level must be errors, warnings or all, got %q", c.AlertLevel)
	}
	for _, ch := range c.AlertChannelList() {
		switch ch {
		case "webhook", "teams", "email":
		default:
			return fmt.Errorf("invalid alert channel %q (valid: webhook, teams, email)", ch)
		}
	}

	return nil
}

func validateDayOfWeek(v string) error {
	if v == "*" {
		return nil
	}
	for _, part := range strings.Split(v, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || d < 0 || d > 6 {
			return fmt.Errorf("day of week must be '*' or comma-separated days 0-6 (0=Mon), got %q", v)
		}
	}
	return nil
}

// IsAuthenticated reports whether a GitHub token is configured.
func (c *Config) IsAuthenticated() bool {
	return strings.TrimSpace(c.Token) != ""
}

// AlertChannelList returns the active alert channels.
func (c *Config) AlertChannelList() []string {
	if c.AlertChannels == "" {
		return nil
	}
	var out []string
	for _, ch := range strings.Split(c.AlertChannels, ",") {
		if ch = strings.ToLower(strings.TrimSpace(ch)); ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

// SMTPRecipients returns the email recipient list.
func (c *Config) SMTPRecipients() []string {
	if c.SMTPTo == "" {
		return nil
	}
	var out []string
	for _, r := range strings.Split(c.SMTPTo, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntPtr sets an int value from a pointer if not nil and flag not
// changed. Used where zero is meaningful, like a midnight schedule hour.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
