package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"cross/domain/book"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write captures the book state and persists it atomically: encode to a temp
// file, fsync, rename over the previous snapshot. A crash mid-write leaves
// the old snapshot intact.
func (w *Writer) Write(b *book.Book) error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return err
	}

	s := Snapshot{
		Created: time.Now(),
		State:   b.State(),
	}

	tmp, err := os.CreateTemp(w.Dir, fileName+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(w.Dir, fileName))
}
