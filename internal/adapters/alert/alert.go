// Package alert delivers run summaries over the configured notification
// channels. Delivery is best effort: a channel failure is logged and never
// affects the run outcome or the persisted state.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
	"github.com/bft-labs/repovault/pkg/log"
)

// Policy names the minimum severity that triggers delivery.
type Policy string

const (
	// PolicyErrors delivers only error-level summaries.
	PolicyErrors Policy = "errors"
	// PolicyWarnings delivers warning and error summaries.
	PolicyWarnings Policy = "warnings"
	// PolicyAll delivers every summary.
	PolicyAll Policy = "all"
)

// shouldSend applies the policy to a summary level.
func shouldSend(policy Policy, level domain.AlertLevel) bool {
	switch policy {
	case PolicyAll:
		return true
	case PolicyWarnings:
		return level == domain.AlertWarning || level == domain.AlertError
	default:
		return level == domain.AlertError
	}
}

// Manager fans a summary out to all channels when the policy matches.
type Manager struct {
	policy   Policy
	channels []ports.Alerter
	logger   log.Logger
}

func NewManager(policy Policy, channels []ports.Alerter, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Manager{policy: policy, channels: channels, logger: logger}
}

// Dispatch delivers the summary to every channel. Failed channels are logged
// and skipped; Dispatch never returns an error.
func (m *Manager) Dispatch(ctx context.Context, summary domain.RunSummary) {
	level := summary.Level()
	if !shouldSend(m.policy, level) {
		m.logger.Debug("alert suppressed by policy",
			log.String("level", string(level)),
			log.String("policy", string(m.policy)))
		return
	}

	for _, ch := range m.channels {
		if err := ch.Send(ctx, summary); err != nil {
			m.logger.Error("alert delivery failed",
				log.String("channel", ch.Name()),
				log.Err(err))
			continue
		}
		m.logger.Info("alert delivered",
			log.String("channel", ch.Name()),
			log.String("level", string(level)))
	}
}

// renderText produces the plain-text report shared by the email channel and
// the Teams card body.
func renderText(s domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup run %s for %s finished at level %s.\n\n", s.BackupID, s.Owner, s.Level())
	fmt.Fprintf(&b, "Started:  %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Repositories: %d total, %d backed up, %d skipped, %d failed\n",
		s.Total, s.BackedUp, s.Skipped, s.Failed)
	fmt.Fprintf(&b, "Metadata: %d issues, %d pull requests, %d releases, %d wikis\n",
		s.Issues, s.Pulls, s.Releases, s.Wikis)
	fmt.Fprintf(&b, "Uploaded: %d bytes\n", s.TotalBytes)
	if s.DeletedSnapshots > 0 {
		fmt.Fprintf(&b, "Pruned: %d snapshots\n", s.DeletedSnapshots)
	}
	if len(s.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func levelColor(level domain.AlertLevel) string {
	switch level {
	case domain.AlertError:
		return "d63333"
	case domain.AlertWarning:
		return "f2c744"
	default:
		return "2eb886"
	}
}
