// Package snapshot persists the book's full open-order state to disk and
// loads it back on boot. A snapshot carries every open order in priority
// order plus the last issued order id, so a restored process resumes with
// identical queues and a sequencer that never reuses an id.
package snapshot

import (
	"time"

	"cross/domain/book"
)

type Snapshot struct {
	Created time.Time
	State   book.State
}
