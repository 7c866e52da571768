package operation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Status is a snapshot of the transfer figures of an [Operation].
type Status struct {
	// TransferredSize is the amount of file bytes written.
	TransferredSize uint64

	// ProgressSize is the amount of progress units done.
	ProgressSize uint64

	// TotalSize is the total of all progress units.
	TotalSize uint64

	// TransferSpeed is the file bytes written per second.
	TransferSpeed float64

	// ProgressSpeed is the progress units done per second.
	ProgressSpeed float64

	// UseSpeedLimit describes if the speed limit is active.
	UseSpeedLimit bool

	// SpeedLimit is the speed limit in bytes per second.
	SpeedLimit uint64
}

// Remaining returns the progress units left to do.
func (s Status) Remaining() uint64 {
	if s.ProgressSize >= s.TotalSize {
		return 0
	}

	return s.TotalSize - s.ProgressSize
}

// AddBytes accounts for n bytes done. With onlyProgress, the bytes were not
// written to disk and only count towards the progress.
func (o *Operation) AddBytes(n uint64, onlyProgress bool, now time.Time) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.progressSize += n
	o.progressMeter.BytesReceived(n, now)

	if !onlyProgress {
		o.transferred += n
		o.transferMeter.BytesReceived(n, now)
	}
}

// RevertBytes takes back n bytes written for a file whose copy was thrown
// away, so that neither the transferred size nor the speeds count them.
func (o *Operation) RevertBytes(n uint64) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	n = min(n, o.transferred)

	o.transferred -= n
	o.progressSize -= min(n, o.progressSize)
	o.transferMeter.BytesReverted(n)
	o.progressMeter.BytesReverted(n)
}

// SetProgressSize sets the progress units done, for example after a file
// was skipped.
func (o *Operation) SetProgressSize(n uint64) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.progressSize = n
}

// Status returns the transfer figures at the given time.
func (o *Operation) Status(now time.Time) Status {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	return Status{
		TransferredSize: o.transferred,
		ProgressSize:    o.progressSize,
		TotalSize:       o.TotalSize,
		TransferSpeed:   o.transferMeter.Speed(now),
		ProgressSpeed:   o.progressMeter.Speed(now),
		UseSpeedLimit:   o.useSpeedLimit,
		SpeedLimit:      o.speedLimit,
	}
}

// InitSpeedMeters restarts both speed meters, which is done whenever the
// operation (re)starts running so that pauses do not lower the speeds.
func (o *Operation) InitSpeedMeters(now time.Time) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.transferMeter.JustConnected(now)
	o.progressMeter.JustConnected(now)
}

// SetSpeedLimit sets (or lifts) the speed limit in bytes per second.
func (o *Operation) SetSpeedLimit(use bool, bytesPerSec uint64) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.useSpeedLimit = use
	if bytesPerSec > 0 {
		o.speedLimit = bytesPerSec
	}

	if use && o.speedLimit > 0 {
		o.limiter.SetLimit(rate.Limit(o.speedLimit))
		o.limiter.SetBurst(int(o.speedLimit)) //nolint:gosec
	} else {
		o.limiter.SetLimit(rate.Inf)
	}
}

// SpeedLimit returns whether the speed limit is active and its value.
func (o *Operation) SpeedLimit() (bool, uint64) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	return o.useSpeedLimit, o.speedLimit
}

// WaitSpeedLimit blocks until n bytes may be written under the speed limit.
// It returns immediately when no limit is active.
func (o *Operation) WaitSpeedLimit(ctx context.Context, n int) error {
	for n > 0 {
		burst := o.limiter.Burst()
		if o.limiter.Limit() == rate.Inf || burst < 1 {
			burst = n
		}

		chunk := min(n, burst)
		if err := o.limiter.WaitN(ctx, chunk); err != nil {
			return fmt.Errorf("(operation) %w", err)
		}

		n -= chunk
	}

	return nil
}

// SetFileProgress publishes the progress of the current file (0-1000).
func (o *Operation) SetFileProgress(permille int) {
	o.filePermille.Store(int32(clampPermille(permille))) //nolint:gosec
}

// SetTotalProgress publishes the progress of the whole operation (0-1000).
func (o *Operation) SetTotalProgress(permille int) {
	o.totalPermille.Store(int32(clampPermille(permille))) //nolint:gosec
}

// Progress returns the published file and total progress (0-1000).
func (o *Operation) Progress() (file int, total int) {
	return int(o.filePermille.Load()), int(o.totalPermille.Load())
}

// Permille returns done in relation to total in permille (0-1000).
func Permille(done, total uint64) int {
	if total == 0 {
		return 1000 //nolint:mnd
	}
	if done >= total {
		return 1000 //nolint:mnd
	}

	return int(done * 1000 / total) //nolint:gosec,mnd
}

func clampPermille(p int) int {
	return max(0, min(p, 1000)) //nolint:mnd
}
