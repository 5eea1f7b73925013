package service

import (
	"go.uber.org/zap"

	"cross/domain/book"
	"cross/snapshot"
)

// Boot restores book state from the latest snapshot. MUST run before the
// transport starts accepting traffic; order ids issued after boot never
// collide with restored ones.
func Boot(snapshotDir string, b *book.Book, log *zap.Logger) error {
	found, err := snapshot.Load(snapshotDir, b)
	if err != nil {
		return err
	}
	if !found {
		log.Info("no snapshot found, starting with an empty book")
		return nil
	}

	snap := b.Snapshot()
	log.Info("book restored from snapshot",
		zap.Int("askLevels", len(snap.Asks)),
		zap.Int("bidLevels", len(snap.Bids)),
		zap.Int("pendingStops", len(snap.StopAsks)+len(snap.StopBids)))
	return nil
}
