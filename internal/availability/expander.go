package availability

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWindow   = errors.New("invalid availability window")
	ErrInvalidDuration = errors.New("invalid slot duration")
	ErrInvalidRange    = errors.New("from date must not be after to date")
	ErrHorizonExceeded = errors.New("date range exceeds the allowed horizon")
)

// MinDurationMinutes is the smallest slot duration the expander accepts.
const MinDurationMinutes = 5

// CandidateSlot is one concrete bookable interval produced by expansion.
// It carries no status; the ledger decides what becomes a persisted slot.
type CandidateSlot struct {
	DoctorID uuid.UUID
	Start    time.Time
	End      time.Time
}

// span is a half-open [start, end) range in minutes from midnight.
type span struct {
	start, end int
}

// Expand converts recurring weekly windows into concrete candidate slots for
// every calendar date in [from, to], inclusive. Only active windows are
// considered. Each window is quantized into consecutive intervals of
// durationMinutes starting at the window start; a trailing remainder shorter
// than the duration is dropped. Candidates come out ordered by (date, start).
//
// Overlapping windows for the same weekday are coalesced into a single span
// before quantization, so a doubly-configured morning never yields duplicate
// or overlapping candidates.
//
// Expand is pure: it touches no storage and returns either a complete
// candidate list or an error, never a partial one. Dates are interpreted in
// the location of from.
func Expand(windows []WeeklyWindow, durationMinutes int, from, to time.Time) ([]CandidateSlot, error) {
	if durationMinutes < MinDurationMinutes {
		return nil, ErrInvalidDuration
	}

	from = truncateToDay(from)
	to = truncateToDay(to)
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	active := make([]WeeklyWindow, 0, len(windows))
	for _, w := range windows {
		if !w.Active {
			continue
		}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		active = append(active, w)
	}
	if len(active) == 0 {
		return nil, nil
	}

	byDay := make(map[time.Weekday][]span)
	for _, w := range active {
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], span{start: w.StartMinute, end: w.EndMinute})
	}
	for day, spans := range byDay {
		byDay[day] = mergeSpans(spans)
	}

	doctorID := active[0].DoctorID

	var candidates []CandidateSlot
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		spans, ok := byDay[d.Weekday()]
		if !ok {
			continue
		}
		for _, sp := range spans {
			for m := sp.start; m+durationMinutes <= sp.end; m += durationMinutes {
				start := time.Date(d.Year(), d.Month(), d.Day(), m/60, m%60, 0, 0, d.Location())
				candidates = append(candidates, CandidateSlot{
					DoctorID: doctorID,
					Start:    start,
					End:      start.Add(time.Duration(durationMinutes) * time.Minute),
				})
			}
		}
	}

	return candidates, nil
}

// mergeSpans sorts spans by start and coalesces strictly overlapping ones.
// Back-to-back spans (end == next start) are kept separate so each window
// keeps its own quantization phase.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start < last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
