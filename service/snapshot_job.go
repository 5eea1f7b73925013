package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cross/snapshot"
)

// StartSnapshotJob persists the book state every interval until ctx is
// cancelled, with a final snapshot on the way out. The returned channel
// closes once that final snapshot is written; callers must wait on it before
// exiting or the last interval's state is lost.
func (s *OrderService) StartSnapshotJob(ctx context.Context, dir string, interval time.Duration) <-chan struct{} {
	w := &snapshot.Writer{Dir: dir}
	done := make(chan struct{})

	go func() {
		defer close(done)

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				if err := w.Write(s.book); err != nil {
					s.log.Error("final snapshot failed", zap.Error(err))
				}
				return

			case <-t.C:
				if err := w.Write(s.book); err != nil {
					s.log.Error("snapshot failed", zap.Error(err))
					continue
				}
			}
		}
	}()

	return done
}
