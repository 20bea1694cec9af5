package row

import "sync/atomic"

// outstanding counts live scratch-bearing sequences: those built by NewSeq
// with a non-nil cleanup, not yet drained to exhaustion or Cleanup'd.
// source.Source uses it as the single-threaded cascade model's (spec §5)
// checkpoint: nonzero when a push starts means a consumer is still holding
// a lazy sequence from an earlier fetch (ivmerr.KindOutOfOrder); nonzero
// again once the cascade that push triggered has run to completion means
// something created during that cascade was dropped half-consumed instead
// of drained or cleaned up (ivmerr.KindLazySequenceAbandoned).
var outstanding int32

// Outstanding reports the current count of undrained, uncleaned
// scratch-bearing sequences.
func Outstanding() int32 { return atomic.LoadInt32(&outstanding) }

// Seq is a single-consumer, single-pass pull iterator, the concrete shape
// of spec's "lazy sequence of Node". A Seq must be either fully drained via
// Next until it returns ok=false, or explicitly released via Cleanup —
// dropping one half-consumed is a programming error (spec §5) that leaks
// whatever scratch entries the producer recorded while filling it.
type Seq[T any] struct {
	next    func() (T, bool)
	cleanup func()
	done    bool
	tracked bool
}

// NewSeq builds a Seq from a pull function and an optional cleanup hook. A
// non-nil cleanup marks the sequence as scratch-bearing for Outstanding's
// bookkeeping; FromSlice and Empty never pass one, since they hold nothing
// upstream to release.
func NewSeq[T any](next func() (T, bool), cleanup func()) *Seq[T] {
	s := &Seq[T]{next: next, cleanup: cleanup}
	if cleanup != nil {
		s.tracked = true
		atomic.AddInt32(&outstanding, 1)
	}
	return s
}

func (s *Seq[T]) untrack() {
	if s.tracked {
		s.tracked = false
		atomic.AddInt32(&outstanding, -1)
	}
}

// Empty returns an already-exhausted Seq with no cleanup obligation.
func Empty[T any]() *Seq[T] {
	return &Seq[T]{done: true}
}

// FromSlice builds a Seq over an in-memory slice; no cleanup is required
// since nothing is held upstream.
func FromSlice[T any](items []T) *Seq[T] {
	i := 0
	return NewSeq(func() (T, bool) {
		if i >= len(items) {
			var zero T
			return zero, false
		}
		v := items[i]
		i++
		return v, true
	}, nil)
}

// Next pulls the next item. ok is false once the sequence is exhausted;
// after that Next may be called again safely and keeps returning false.
func (s *Seq[T]) Next() (T, bool) {
	if s == nil || s.done || s.next == nil {
		var zero T
		return zero, false
	}
	v, ok := s.next()
	if !ok {
		s.done = true
		s.untrack()
	}
	return v, ok
}

// Drain consumes every remaining item, discarding them, and marks the
// sequence done. Used by operators that only need the side effect of
// fully realizing (and so scratch-recording) a fetch.
func (s *Seq[T]) Drain() {
	for {
		if _, ok := s.Next(); !ok {
			return
		}
	}
}

// Collect drains the sequence into a slice.
func (s *Seq[T]) Collect() []T {
	var out []T
	for {
		v, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Cleanup releases any scratch entries the producer tied to this sequence
// without requiring the consumer to drain it first. Idempotent.
func (s *Seq[T]) Cleanup() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if s.cleanup != nil {
		s.cleanup()
	}
	s.untrack()
}
