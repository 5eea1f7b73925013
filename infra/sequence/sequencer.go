package sequence

import "sync/atomic"

// Sequencer issues strictly monotonic order IDs.
// It is deterministic and replay-safe.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
// On fresh start → start = 0
// On restore → start = last persisted id
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next order id.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued id.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// ResumeAbove moves the sequencer forward so every future id exceeds v.
// Never moves it backward.
func (s *Sequencer) ResumeAbove(v uint64) {
	for {
		cur := s.last.Load()
		if cur >= v {
			return
		}
		if s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
