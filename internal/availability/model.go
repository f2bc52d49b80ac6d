package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WeeklyWindow is a recurring declaration that a doctor sees patients on a
// given weekday between two local times of day. Start and end are minutes
// from midnight, minute precision.
type WeeklyWindow struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	DayOfWeek   time.Weekday // 0 = Sunday
	StartMinute int
	EndMinute   int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const minutesPerDay = 24 * 60

// Validate checks the window's structural invariants.
func (w WeeklyWindow) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidWindow, w.DayOfWeek)
	}
	if w.StartMinute < 0 || w.EndMinute > minutesPerDay {
		return fmt.Errorf("%w: times must fall within the day", ErrInvalidWindow)
	}
	if w.StartMinute >= w.EndMinute {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidWindow, Clock(w.StartMinute), Clock(w.EndMinute))
	}
	return nil
}

// Clock renders minutes-from-midnight as "HH:MM".
func Clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return h*60 + m, nil
}
