// Package estimator implements the speed and time estimation shown in the
// status line of a progress dialog. Speeds are measured over sliding windows
// and the remaining time is rounded to human-friendly granularities, with
// updates debounced so that the displayed value does not jitter.
package estimator

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// TransferStep is the window step of the transfer speed meter.
	TransferStep = 200 * time.Millisecond

	// TransferSteps is the number of window steps of the transfer speed meter.
	TransferSteps = 25

	// ProgressStep is the window step of the progress speed meter.
	ProgressStep = 500 * time.Millisecond

	// ProgressSteps is the number of window steps of the progress speed meter.
	ProgressSteps = 60
)

// FormatTimeLeft formats a number of seconds as "1 h 5 min 3 sec". Seconds
// are omitted when zero unless nothing else would be printed.
func FormatTimeLeft(secs uint64) string {
	hours := secs / 3600       //nolint:mnd
	mins := (secs % 3600) / 60 //nolint:mnd
	rest := secs % 60          //nolint:mnd

	parts := []string{}

	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d h", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%d min", mins))
	}
	if rest > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d sec", rest))
	}

	return strings.Join(parts, " ")
}

// FormatSpeed formats a speed in bytes per second.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}

	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// FormatSize formats a size in bytes.
func FormatSize(n uint64) string {
	return humanize.Bytes(n)
}
