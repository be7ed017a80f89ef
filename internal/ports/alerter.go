package ports

import (
	"context"

	"github.com/bft-labs/repovault/internal/domain"
)

// Alerter consumes one RunSummary per run. The core has no knowledge of
// channel formatting; implementations render the summary for their medium.
type Alerter interface {
	// Name identifies the channel in logs ("webhook", "teams", "email").
	Name() string

	// Send delivers the summary. Errors are logged by the caller and
	// never fail the run.
	Send(ctx context.Context, summary domain.RunSummary) error
}
