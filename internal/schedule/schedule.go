// Package schedule computes when backup runs happen. It is pure calendar
// arithmetic; the serve loop owns the timers.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bft-labs/repovault/internal/domain"
)

const (
	ModeCron     = "cron"
	ModeInterval = "interval"
)

// Spec describes the recurrence of backup runs.
//
// In cron mode the run fires at Hour:Minute on the days selected by
// DayOfWeek, where "*" means every day and a digit 0-6 selects one weekday
// with 0 meaning Monday. In interval mode the run fires IntervalHours after
// the previous one.
type Spec struct {
	Mode          string
	Hour          int
	Minute        int
	DayOfWeek     string
	IntervalHours int
}

// cronExpr renders the Spec as a standard five-field cron expression. The
// weekday numbering is shifted because cron counts from Sunday.
func (s Spec) cronExpr() string {
	dow := s.DayOfWeek
	if dow == "" {
		dow = "*"
	}
	if dow != "*" {
		parts := strings.Split(dow, ",")
		for i, p := range parts {
			if d, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
				parts[i] = strconv.Itoa((d + 1) % 7)
			}
		}
		dow = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%d %d * * %s", s.Minute, s.Hour, dow)
}

// parse compiles the cron expression once per call site.
func (s Spec) parse() (cron.Schedule, error) {
	sched, err := cron.ParseStandard(s.cronExpr())
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", domain.ErrInvalidConfig, s.cronExpr(), err)
	}
	return sched, nil
}

// Validate reports whether the schedule can be parsed.
func (s Spec) Validate() error {
	switch s.Mode {
	case ModeInterval:
		if s.IntervalHours <= 0 {
			return fmt.Errorf("%w: interval hours must be positive", domain.ErrInvalidConfig)
		}
		return nil
	case ModeCron:
		_, err := s.parse()
		return err
	default:
		return fmt.Errorf("%w: unknown schedule mode %q", domain.ErrInvalidConfig, s.Mode)
	}
}

// NextAfter returns the first scheduled run time strictly after t. In
// interval mode t is interpreted as the previous run time.
func (s Spec) NextAfter(t time.Time) (time.Time, error) {
	if s.Mode == ModeInterval {
		return t.Add(time.Duration(s.IntervalHours) * time.Hour), nil
	}
	sched, err := s.parse()
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}

// IsDue reports whether a run that should have fired between lastRun and now
// was missed. A zero lastRun means no run ever completed, which always
// counts as due.
func (s Spec) IsDue(now, lastRun time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	next, err := s.NextAfter(lastRun)
	if err != nil {
		return false
	}
	return !next.After(now)
}
