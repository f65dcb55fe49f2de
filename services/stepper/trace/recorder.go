// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trace

import (
	"iter"

	"github.com/AleutianAI/AlgoTrace/services/stepper/snapshot"
)

// =============================================================================
// Recorder
// =============================================================================

// Recorder is the producer side of a Sequence.
//
// Description:
//
//	Wraps the yield function handed to a range-over-func iterator. Every
//	emitted step is cloned so that later mutation of the producer's working
//	copy is never observable by the consumer. Once the consumer stops,
//	the Recorder swallows further emits instead of calling yield again.
//
// Thread Safety:
//
//	Not safe for concurrent use. A Recorder lives inside one iterator body.
type Recorder struct {
	yield   func(snapshot.Step) bool
	stopped bool
	emitted int
}

// NewRecorder wraps yield.
func NewRecorder(yield func(snapshot.Step) bool) *Recorder {
	return &Recorder{yield: yield}
}

// Emit hands a clone of s to the consumer.
//
// Returns false when the consumer has stopped; producers should return
// promptly after that. Calling Emit after a false return is a no-op.
func (r *Recorder) Emit(s snapshot.Step) bool {
	if r.stopped {
		return false
	}
	r.emitted++
	if !r.yield(s.Clone()) {
		r.stopped = true
		return false
	}
	return true
}

// Stopped reports whether the consumer has stopped pulling.
func (r *Recorder) Stopped() bool { return r.stopped }

// Emitted returns the number of steps handed to the consumer.
func (r *Recorder) Emitted() int { return r.emitted }

// Single returns a Sequence of exactly one step.
func Single(s snapshot.Step) Sequence {
	return func(yield func(snapshot.Step) bool) {
		NewRecorder(yield).Emit(s)
	}
}

// =============================================================================
// Puller
// =============================================================================

// Puller consumes a Sequence one step at a time.
//
// Stop must be called when the caller abandons the sequence early; it is
// safe to call Stop more than once.
type Puller struct {
	next func() (snapshot.Step, bool)
	stop func()
	done bool
	n    int
}

// Pull starts pulling seq.
func Pull(seq Sequence) *Puller {
	next, stop := iter.Pull(iter.Seq[snapshot.Step](seq))
	return &Puller{next: next, stop: stop}
}

// Next returns the next step, or false once the sequence is exhausted.
func (p *Puller) Next() (snapshot.Step, bool) {
	if p.done {
		return snapshot.Step{}, false
	}
	s, ok := p.next()
	if !ok {
		p.done = true
		p.stop()
		return snapshot.Step{}, false
	}
	p.n++
	return s, true
}

// Pulled returns the number of steps returned so far.
func (p *Puller) Pulled() int { return p.n }

// Stop releases the underlying iterator.
func (p *Puller) Stop() {
	p.done = true
	p.stop()
}
