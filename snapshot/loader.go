package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"cross/domain/book"
)

// Load restores the book from the snapshot in dir. A missing snapshot is a
// fresh start, not an error.
func Load(dir string, b *book.Book) (bool, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return false, err
	}

	b.Restore(s.State)
	return true, nil
}
