package estimator

import "time"

// SpeedMeter measures a byte rate over a sliding window made of a fixed number
// of steps. The window only covers the time since the meter was connected, so
// that the first seconds of a transfer are not diluted by empty steps.
//
// A SpeedMeter is not safe for concurrent use.
type SpeedMeter struct {
	step      time.Duration
	buckets   []uint64
	cur       int
	curStart  time.Time
	started   time.Time
	connected bool
}

// NewSpeedMeter returns a pointer to a new [SpeedMeter] with the given window
// step and number of steps.
func NewSpeedMeter(step time.Duration, steps int) *SpeedMeter {
	if step <= 0 {
		step = time.Second
	}
	if steps < 1 {
		steps = 1
	}

	return &SpeedMeter{
		step:    step,
		buckets: make([]uint64, steps),
	}
}

// JustConnected (re)starts the measurement at the given time, discarding all
// previously received bytes.
func (m *SpeedMeter) JustConnected(now time.Time) {
	m.Clear()

	m.started = now
	m.curStart = now
	m.connected = true
}

// Clear discards the measurement. [SpeedMeter.Speed] reports zero until the
// meter is connected again.
func (m *SpeedMeter) Clear() {
	for i := range m.buckets {
		m.buckets[i] = 0
	}

	m.cur = 0
	m.connected = false
}

// BytesReceived adds n bytes to the step containing the given time.
func (m *SpeedMeter) BytesReceived(n uint64, now time.Time) {
	if !m.connected {
		m.JustConnected(now)
	}

	m.advance(now)
	m.buckets[m.cur] += n
}

// BytesReverted takes back up to n bytes, newest steps first, for bytes that
// were received but later discarded.
func (m *SpeedMeter) BytesReverted(n uint64) {
	for i := 0; i < len(m.buckets) && n > 0; i++ {
		idx := (m.cur - i + len(m.buckets)) % len(m.buckets)

		d := min(n, m.buckets[idx])
		m.buckets[idx] -= d
		n -= d
	}
}

// Speed returns the measured rate in bytes per second. It is zero until at
// least one window step has elapsed since connecting.
func (m *SpeedMeter) Speed(now time.Time) float64 {
	if !m.connected {
		return 0
	}

	m.advance(now)

	span := time.Duration(len(m.buckets)-1)*m.step + now.Sub(m.curStart)
	span = min(span, now.Sub(m.started))

	if span < m.step {
		return 0
	}

	var sum uint64
	for _, b := range m.buckets {
		sum += b
	}

	return float64(sum) / span.Seconds()
}

func (m *SpeedMeter) advance(now time.Time) {
	if now.Before(m.curStart) {
		return
	}

	n := int(now.Sub(m.curStart) / m.step)
	if n <= 0 {
		return
	}

	if n >= len(m.buckets) {
		for i := range m.buckets {
			m.buckets[i] = 0
		}
		m.cur = 0
	} else {
		for range n {
			m.cur = (m.cur + 1) % len(m.buckets)
			m.buckets[m.cur] = 0
		}
	}

	m.curStart = m.curStart.Add(time.Duration(n) * m.step)
}
