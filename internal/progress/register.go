package progress

import (
	"sync/atomic"

	"github.com/desertwitch/gocopy/internal/schema"
)

// sampleRegister holds the latest [schema.Sample] published by a worker. The
// worker overwrites it at any frequency without ever blocking; the repaint
// ticker of the dialog drains it. Texts of a drained-over sample are carried
// forward into a later sample without texts, so they are never lost.
type sampleRegister struct {
	latest atomic.Pointer[schema.Sample]
}

func (r *sampleRegister) Store(sample schema.Sample) {
	for {
		old := r.latest.Load()

		next := sample
		if !next.HasTexts && old != nil && old.HasTexts {
			next.HasTexts = true
			next.Operation = old.Operation
			next.Source = old.Source
			next.Preposition = old.Preposition
			next.Target = old.Target
		}

		if r.latest.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (r *sampleRegister) Take() (schema.Sample, bool) {
	sample := r.latest.Swap(nil)
	if sample == nil {
		return schema.Sample{}, false
	}

	return *sample, true
}
