package book

// OrderState is the persistent form of one open order. Side and kind are
// implied by which State list carries it.
type OrderState struct {
	ID    uint64
	Owner string
	Size  int64
	Price int64
}

// State is the full persistent state of the book: every open order in
// priority order plus the last issued order id. It is what the snapshot
// layer serialises.
type State struct {
	LastID   uint64
	Asks     []OrderState
	Bids     []OrderState
	StopAsks []OrderState
	StopBids []OrderState
}

// State captures the book under the lock. Limit orders are listed best price
// first, arrival order within a level, so Restore rebuilds identical queues.
func (b *Book) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := State{LastID: b.ids.Current()}
	st.Asks = collect(b.asks)
	st.Bids = collect(b.bids)
	for _, o := range b.stopAsks {
		st.StopAsks = append(st.StopAsks, orderState(o))
	}
	for _, o := range b.stopBids {
		st.StopBids = append(st.StopBids, orderState(o))
	}
	return st
}

// Restore replaces the book's contents with st and moves the id sequencer
// past st.LastID so replayed state never collides with new submissions.
// Stops are not re-evaluated; a restored book is exactly the captured one.
func (b *Book) Restore(st State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.asks = newBookSide(false)
	b.bids = newBookSide(true)
	b.stopAsks = b.stopAsks[:0]
	b.stopBids = b.stopBids[:0]

	for _, os := range st.Asks {
		b.rest(restored(os, Ask, Limit))
	}
	for _, os := range st.Bids {
		b.rest(restored(os, Bid, Limit))
	}
	for _, os := range st.StopAsks {
		b.stopAsks = append(b.stopAsks, restored(os, Ask, Stop))
	}
	for _, os := range st.StopBids {
		b.stopBids = append(b.stopBids, restored(os, Bid, Stop))
	}

	b.ids.ResumeAbove(st.LastID)
	b.refresh()
}

func collect(s *bookSide) []OrderState {
	var out []OrderState
	s.Walk(func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			out = append(out, orderState(o))
		}
		return true
	})
	return out
}

func orderState(o *Order) OrderState {
	return OrderState{ID: o.ID, Owner: o.Owner, Size: o.Size, Price: o.Price}
}

func restored(os OrderState, side Side, kind Kind) *Order {
	return &Order{ID: os.ID, Owner: os.Owner, Side: side, Kind: kind, Size: os.Size, Price: os.Price}
}
