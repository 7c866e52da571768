package estimator

import "time"

// TimeLeft debounces the remaining time shown to the user. A new estimate
// replaces the displayed one only once its deadline has passed, or when it
// deviates from it by more than half.
type TimeLeft struct {
	last         uint64
	nextUpdate   time.Time
	statusPeriod time.Duration
}

// NewTimeLeft returns a pointer to a new [TimeLeft]. The statusPeriod is the
// interval in which the status line is refreshed; deadlines are shortened by
// half of it so that they do not fall just behind a refresh.
func NewTimeLeft(statusPeriod time.Duration) *TimeLeft {
	return &TimeLeft{
		statusPeriod: statusPeriod,
	}
}

// Update computes the time left for bytesRemaining at bytesPerSec and returns
// the value to display. No value is returned (and the state is reset) when
// there is no speed or nothing remains.
func (t *TimeLeft) Update(now time.Time, bytesRemaining uint64, bytesPerSec float64) (uint64, bool) {
	if bytesPerSec <= 0 || bytesRemaining == 0 {
		t.Reset(now)

		return 0, false
	}

	secs := RoundSeconds(uint64(float64(bytesRemaining)/bytesPerSec) + 1)

	if !now.Before(t.nextUpdate) || secs > t.last*3/2 || secs < t.last/2 {
		t.last = secs
		t.nextUpdate = now.Add(updateDelay(secs) - t.statusPeriod/2) //nolint:mnd
	}

	return t.last, true
}

// Reset forgets the displayed value so that the next estimate is shown
// immediately.
func (t *TimeLeft) Reset(now time.Time) {
	t.last = 0
	t.nextUpdate = now
}

// Last returns the currently displayed value.
func (t *TimeLeft) Last() uint64 {
	return t.last
}

// RoundSeconds rounds secs to a granularity that grows with its magnitude: a
// tenth of the value, snapped to 1, 2, 5, 10, 20 or 40 units of seconds,
// minutes or hours.
func RoundSeconds(secs uint64) uint64 {
	step := (secs + 5) / 10 //nolint:mnd

	var expon int
	for step >= 50 { //nolint:mnd
		step /= 60
		expon++
	}

	switch {
	case step <= 1:
		step = 1
	case step <= 3: //nolint:mnd
		step = 2
	case step <= 7: //nolint:mnd
		step = 5
	case step < 15: //nolint:mnd
		step = 10
	case step < 30: //nolint:mnd
		step = 20
	default:
		step = 40
	}

	for range expon {
		step *= 60
	}

	return ((secs + step/2) / step) * step
}

func updateDelay(secs uint64) time.Duration {
	switch {
	case secs <= 10: //nolint:mnd
		return 500 * time.Millisecond //nolint:mnd
	case secs <= 30: //nolint:mnd
		return time.Second
	case secs <= 60: //nolint:mnd
		return 2 * time.Second //nolint:mnd
	case secs <= 300: //nolint:mnd
		return 5 * time.Second //nolint:mnd
	default:
		return 10 * time.Second //nolint:mnd
	}
}
