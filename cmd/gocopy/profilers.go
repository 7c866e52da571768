package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// memoryMonitorInterval is the interval at which a [memoryObserver] is
	// updated.
	memoryMonitorInterval = 100 * time.Millisecond
)

// CPUProfiler writes a CPU profile for as long as its context lives or until
// it is stopped.
//
//nolint:containedctx
type CPUProfiler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// NewCPUProfiler returns a pointer to a new [CPUProfiler]. Profiling is
// started right away unless the path is empty.
func NewCPUProfiler(ctx context.Context, path string) *CPUProfiler {
	cprof := &CPUProfiler{}
	cprof.ctx, cprof.cancel = context.WithCancel(ctx)
	cprof.doneChan = make(chan struct{})

	go cprof.profile(path)

	return cprof
}

func (cprof *CPUProfiler) profile(path string) {
	defer close(cprof.doneChan)

	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Error("Could not create cpu profile", "err", err)

		return
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		slog.Error("Could not start cpu profile", "err", err)

		return
	}
	defer pprof.StopCPUProfile()

	<-cprof.ctx.Done()
}

// Stop ends profiling and waits for the profile to be written.
func (cprof *CPUProfiler) Stop() {
	cprof.cancel()
	<-cprof.doneChan
}

// memoryObserver tracks peak memory usage over a period of time.
type memoryObserver struct {
	sync.RWMutex
	maxAlloc uint64
	stopChan chan struct{}
	stopOnce sync.Once
}

// newMemoryObserver returns a pointer to a new [memoryObserver]. The tracking
// is started and needs to be stopped with [memoryObserver.Stop].
func newMemoryObserver(ctx context.Context) *memoryObserver {
	obs := &memoryObserver{
		stopChan: make(chan struct{}),
	}
	go obs.monitor(ctx)

	return obs
}

// MaxAlloc returns the peak recorded memory allocation.
func (o *memoryObserver) MaxAlloc() uint64 {
	o.RLock()
	defer o.RUnlock()

	return o.maxAlloc
}

// Stop halts the tracking and logs the peak memory allocation.
func (o *memoryObserver) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopChan)
	})

	slog.Debug("Memory consumption peaked", "maxAlloc", humanize.Bytes(o.MaxAlloc()))
}

func (o *memoryObserver) monitor(ctx context.Context) {
	ticker := time.NewTicker(memoryMonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			o.Lock()
			o.maxAlloc = max(o.maxAlloc, m.Alloc)
			o.Unlock()
		}
	}
}
