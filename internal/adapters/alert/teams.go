package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
)

// messageCard is the legacy Office 365 connector card format, still the
// simplest payload Teams incoming webhooks accept.
type messageCard struct {
	Type       string        `json:"@type"`
	Context    string        `json:"@context"`
	ThemeColor string        `json:"themeColor"`
	Summary    string        `json:"summary"`
	Sections   []cardSection `json:"sections"`
}

type cardSection struct {
	ActivityTitle string     `json:"activityTitle"`
	Text          string     `json:"text,omitempty"`
	Facts         []cardFact `json:"facts,omitempty"`
}

type cardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Teams posts run summaries to a Microsoft Teams incoming webhook.
type Teams struct {
	url    string
	client ports.HTTPClient
}

func NewTeams(url string, client ports.HTTPClient) *Teams {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Teams{url: url, client: client}
}

func (t *Teams) Name() string { return "teams" }

func (t *Teams) Send(ctx context.Context, summary domain.RunSummary) error {
	title := fmt.Sprintf("Backup %s for %s: %s", summary.BackupID, summary.Owner, summary.Level())

	section := cardSection{
		ActivityTitle: title,
		Facts: []cardFact{
			{Name: "Repositories", Value: fmt.Sprintf("%d total / %d backed up / %d skipped / %d failed",
				summary.Total, summary.BackedUp, summary.Skipped, summary.Failed)},
			{Name: "Metadata", Value: fmt.Sprintf("%d issues, %d pull requests, %d releases, %d wikis",
				summary.Issues, summary.Pulls, summary.Releases, summary.Wikis)},
			{Name: "Uploaded", Value: fmt.Sprintf("%d bytes", summary.TotalBytes)},
			{Name: "Duration", Value: summary.Duration.Round(time.Second).String()},
		},
	}
	if n := len(summary.Errors); n > 0 {
		section.Text = fmt.Sprintf("%d error(s); first: %s", n, summary.Errors[0])
	}

	body, err := json.Marshal(messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: levelColor(summary.Level()),
		Summary:    title,
		Sections:   []cardSection{section},
	})
	if err != nil {
		return fmt.Errorf("marshal teams card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build teams request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post teams webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("teams webhook returned status %d", resp.StatusCode)
	}
	return nil
}
