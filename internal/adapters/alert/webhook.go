package alert

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
)

// webhookPayload is the JSON body posted to the generic webhook endpoint.
type webhookPayload struct {
	Event     string   `json:"event"`
	Level     string   `json:"level"`
	BackupID  string   `json:"backup_id"`
	Owner     string   `json:"owner"`
	StartedAt string   `json:"started_at"`
	Duration  float64  `json:"duration_seconds"`
	Total     int      `json:"repos_total"`
	BackedUp  int      `json:"repos_backed_up"`
	Skipped   int      `json:"repos_skipped"`
	Failed    int      `json:"repos_failed"`
	Bytes     int64    `json:"bytes_uploaded"`
	Deleted   int      `json:"snapshots_deleted"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Webhook posts run summaries as JSON. With a secret configured each request
// carries an X-Signature header holding the hex HMAC-SHA256 of the body so
// receivers can authenticate the sender.
type Webhook struct {
	url    string
	secret string
	client ports.HTTPClient
}

func NewWebhook(url, secret string, client ports.HTTPClient) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{url: url, secret: secret, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, summary domain.RunSummary) error {
	body, err := json.Marshal(webhookPayload{
		Event:     "backup_completed",
		Level:     string(summary.Level()),
		BackupID:  summary.BackupID,
		Owner:     summary.Owner,
		StartedAt: summary.StartedAt.Format(time.RFC3339),
		Duration:  summary.Duration.Seconds(),
		Total:     summary.Total,
		BackedUp:  summary.BackedUp,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Bytes:     summary.TotalBytes,
		Deleted:   summary.DeletedSnapshots,
		Errors:    summary.Errors,
		Warnings:  summary.Warnings,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Signature", "sha256="+sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
