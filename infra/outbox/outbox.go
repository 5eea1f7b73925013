package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

// State tracks a notification through the outbox:
// NEW (committed, not yet published) → SENT (published, awaiting broker ack)
// → ACKED (safe to truncate). FAILED marks entries past the retry budget.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is one durable notification envelope: the addressee plus the
// already-serialised payload to deliver.
type Record struct {
	State       State
	Retries     uint32
	LastAttempt int64
	Owner       string
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][ownerLen:2][owner][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8+2+len(r.Owner)+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint16(buf[13:15], uint16(len(r.Owner)))
	copy(buf[15:], r.Owner)
	copy(buf[15+len(r.Owner):], r.Payload)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 15 {
		return Record{}, errors.New("invalid outbox record length")
	}
	ownerLen := int(binary.BigEndian.Uint16(b[13:15]))
	if len(b) < 15+ownerLen {
		return Record{}, errors.New("invalid outbox record owner length")
	}
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Owner:       string(b[15 : 15+ownerLen]),
		Payload:     append([]byte(nil), b[15+ownerLen:]...),
	}, nil
}

// -------------------- Outbox --------------------

// Outbox is the durable notification queue between the matching path and the
// broadcaster. Appends are synced before the append returns, so a committed
// match never loses its notification across a crash.
type Outbox struct {
	db *pebble.DB

	mu   sync.Mutex
	next uint64
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability
	})
	if err != nil {
		return nil, err
	}
	o := &Outbox{db: db}
	if err := o.recoverSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// recoverSeq resumes the append sequence past the highest existing key.
func (o *Outbox) recoverSeq() error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		o.next = seq
	}
	return iter.Error()
}

// -------------------- API --------------------

// Append stores a NEW envelope and returns its sequence number. Called on
// the submission path after the match commits.
func (o *Outbox) Append(owner string, payload []byte) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.next++
	rec := Record{
		State:   StateNew,
		Owner:   owner,
		Payload: payload,
	}
	if err := o.db.Set(keyFor(o.next), encodeRecord(rec), pebble.Sync); err != nil {
		o.next--
		return 0, err
	}
	return o.next, nil
}

// MarkSent records a publish attempt.
func (o *Outbox) MarkSent(seq uint64, retries uint32) error {
	return o.update(seq, StateSent, retries)
}

// MarkAcked records broker acknowledgement; the entry becomes truncatable.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.update(seq, StateAcked, 0)
}

// MarkFailed parks an entry past the retry budget for operator inspection.
func (o *Outbox) MarkFailed(seq uint64, retries uint32) error {
	return o.update(seq, StateFailed, retries)
}

func (o *Outbox) update(seq uint64, state State, retries uint32) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for a sequence number.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// ScanPending iterates, in sequence order, every record not yet acked: NEW
// entries plus SENT entries whose ack never arrived. The broadcaster drives
// its redelivery loop off this.
func (o *Outbox) ScanPending(fn func(seq uint64, rec Record) error) error {
	return o.scan(func(seq uint64, rec Record) error {
		if rec.State != StateNew && rec.State != StateSent {
			return nil
		}
		return fn(seq, rec)
	})
}

// TruncateAcked deletes every ACKED record.
func (o *Outbox) TruncateAcked() error {
	var acked []uint64
	if err := o.scan(func(seq uint64, rec Record) error {
		if rec.State == StateAcked {
			acked = append(acked, seq)
		}
		return nil
	}); err != nil {
		return err
	}
	for _, seq := range acked {
		if err := o.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

func (o *Outbox) scan(fn func(seq uint64, rec Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const keyPrefix = "notice/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
