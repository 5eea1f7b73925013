package book

import (
	"sync"

	"cross/infra/sequence"
)

// Book is the live order book and matching engine for a single instrument.
//
// All state-changing operations and all reads of derived state run under one
// exclusive lock scoped to the whole book: a single-writer model. Nothing
// blocks while the lock is held; executed trades and notification events are
// collected into an Execution and handed back to the caller for dispatch
// after the lock is released.
type Book struct {
	mu sync.Mutex

	asks *bookSide
	bids *bookSide

	// pending stop orders, arrival order; membership is exclusive with the
	// limit book
	stopAsks []*Order
	stopBids []*Order

	bestAsk int64
	bestBid int64
	spread  int64

	ids *sequence.Sequencer
}

// Caps on accepted order values. With both bounded below 2^31 a single
// order's notional stays below 2^62; a level aggregate only approaches
// int64 overflow past two billion cap-sized resting lots.
const (
	MaxSize  int64 = 1<<31 - 1
	MaxPrice int64 = 1<<31 - 1
)

func New(ids *sequence.Sequencer) *Book {
	return &Book{
		asks:   newBookSide(false),
		bids:   newBookSide(true),
		spread: -1,
		ids:    ids,
	}
}

// SubmitLimit matches an incoming limit order against the opposite side and
// rests any remainder at its price level. The assigned order id is returned
// unconditionally; the caller reads the fill outcome from ex.Remaining.
func (b *Book) SubmitLimit(owner string, side Side, size, price int64) (*Execution, error) {
	if size <= 0 || size > MaxSize {
		return nil, ErrInvalidSize
	}
	if price <= 0 || price > MaxPrice {
		return nil, ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ex := &Execution{OrderID: b.ids.Next()}

	crosses := func(oppPrice int64) bool {
		if side == Ask {
			// an ask matches bids priced at or above it
			return oppPrice >= price
		}
		return oppPrice <= price
	}
	remaining := b.match(side, owner, size, crosses, ex)
	ex.Remaining = remaining

	if remaining == 0 {
		// taker's aggregate fill
		ex.trade(ex.OrderID, side, Limit, size, price, owner)
	} else {
		b.rest(&Order{
			ID:    ex.OrderID,
			Owner: owner,
			Side:  side,
			Kind:  Limit,
			Size:  remaining,
			Price: price,
		})
	}

	b.refresh()
	b.evaluateStops(ex)
	return ex, nil
}

// SubmitMarket fills exactly size units from the opposite side or fails
// atomically. Admission (opposite side non-empty, available size excluding
// the owner's own resting orders) and the match are one critical section, and
// a rejected market order consumes no order id.
func (b *Book) SubmitMarket(owner string, side Side, size int64) (*Execution, error) {
	if size <= 0 || size > MaxSize {
		return nil, ErrInvalidSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	opp := b.sideFor(side.Opposite())
	if opp.Empty() || opp.AvailableTo(owner) < size {
		return nil, ErrNoLiquidity
	}

	ex := &Execution{OrderID: b.ids.Next()}
	b.match(side, owner, size, nil, ex)
	ex.trade(ex.OrderID, side, Market, size, 0, owner)

	b.refresh()
	b.evaluateStops(ex)
	return ex, nil
}

// SubmitStop enqueues a stop order, or executes it immediately as a market
// order under its own id when the trigger condition is already met (ask-stop:
// best bid at or below the stop price; bid-stop: best ask at or above it). An
// immediately triggered stop that cannot fill is not enqueued; it is reported
// through ex.Failures like any other triggered-but-unfillable stop.
func (b *Book) SubmitStop(owner string, side Side, size, stopPrice int64) (*Execution, error) {
	if size <= 0 || size > MaxSize {
		return nil, ErrInvalidSize
	}
	if stopPrice <= 0 || stopPrice > MaxPrice {
		return nil, ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ex := &Execution{OrderID: b.ids.Next()}
	o := &Order{
		ID:    ex.OrderID,
		Owner: owner,
		Side:  side,
		Kind:  Stop,
		Size:  size,
		Price: stopPrice,
	}

	if b.triggered(o) {
		if !b.execStop(o, ex) {
			ex.fail(o)
		}
	} else if side == Ask {
		b.stopAsks = append(b.stopAsks, o)
	} else {
		b.stopBids = append(b.stopBids, o)
	}

	b.evaluateStops(ex)
	return ex, nil
}

// Cancel removes a resting or pending order. Both id and owner must match;
// cancelling another owner's order is indistinguishable from cancelling one
// that does not exist. Searches ask levels, bid levels, then the two stop
// queues.
func (b *Book) Cancel(id uint64, owner string) (*Execution, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ex := &Execution{OrderID: id}

	for _, s := range []*bookSide{b.asks, b.bids} {
		for _, price := range s.Prices() {
			lvl := s.Level(price)
			if lvl == nil {
				continue
			}
			if _, ok := lvl.Remove(id, owner); ok {
				if lvl.Empty() {
					s.Delete(price)
				}
				b.refresh()
				b.evaluateStops(ex)
				return ex, nil
			}
		}
	}

	var ok bool
	if b.stopAsks, ok = removeStop(b.stopAsks, id, owner); ok {
		return ex, nil
	}
	if b.stopBids, ok = removeStop(b.stopBids, id, owner); ok {
		return ex, nil
	}

	return nil, ErrNotFound
}

func removeStop(queue []*Order, id uint64, owner string) ([]*Order, bool) {
	for i, o := range queue {
		if o.ID == id && o.Owner == owner {
			return append(queue[:i], queue[i+1:]...), true
		}
	}
	return queue, false
}

// match walks the opposite side best-first while remaining size > 0. crosses
// bounds the walk for limit orders; nil walks unconditionally (market/stop
// execution). Within a level orders match in arrival order, and resting
// orders of the same owner are skipped, never matched, never removed.
func (b *Book) match(side Side, owner string, size int64, crosses func(int64) bool, ex *Execution) int64 {
	opp := b.sideFor(side.Opposite())

	for _, price := range opp.Prices() {
		if size <= 0 {
			break
		}
		if crosses != nil && !crosses(price) {
			break
		}
		lvl := opp.Level(price)
		if lvl == nil {
			continue
		}
		size = b.matchLevel(lvl, size, owner, ex)
		if lvl.Empty() {
			opp.Delete(price)
		}
	}
	return size
}

func (b *Book) matchLevel(lvl *PriceLevel, size int64, owner string, ex *Execution) int64 {
	o := lvl.Head()
	for o != nil && size > 0 {
		next := o.Next()
		if o.Owner == owner {
			// self-trade prevention: pass over, leave resting
			o = next
			continue
		}

		switch {
		case o.Size < size:
			size -= o.Size
			ex.trade(o.ID, o.Side, Limit, o.Size, o.Price, o.Owner)
			lvl.Drop(o)
		case o.Size == size:
			ex.trade(o.ID, o.Side, Limit, o.Size, o.Price, o.Owner)
			lvl.Drop(o)
			return 0
		default:
			lvl.Consume(o, size)
			ex.trade(o.ID, o.Side, Limit, size, o.Price, o.Owner)
			return 0
		}
		o = next
	}
	return size
}

func (b *Book) rest(o *Order) {
	b.sideFor(o.Side).GetOrCreate(o.Price).Enqueue(o)
}

func (b *Book) sideFor(s Side) *bookSide {
	if s == Ask {
		return b.asks
	}
	return b.bids
}

// refresh recomputes the best-price cache and the spread from the first
// entry of each side. Spread is -1 whenever it is not well defined.
func (b *Book) refresh() {
	b.bestAsk = 0
	if p, ok := b.asks.BestPrice(); ok {
		b.bestAsk = p
	}
	b.bestBid = 0
	if p, ok := b.bids.BestPrice(); ok {
		b.bestBid = p
	}
	if b.bestAsk > 0 && b.bestBid > 0 && b.bestAsk >= b.bestBid {
		b.spread = b.bestAsk - b.bestBid
	} else {
		b.spread = -1
	}
}

func (b *Book) triggered(o *Order) bool {
	if o.Side == Ask {
		return !b.bids.Empty() && b.bestBid <= o.Price
	}
	return !b.asks.Empty() && b.bestAsk >= o.Price
}

// evaluateStops runs the stop queues against the current best prices,
// looping until no stop fires. Executing a stop moves the best prices and can
// trigger further stops; matching never calls back into here, the loop picks
// up whatever the execution changed. A triggered stop that cannot fill is
// dequeued anyway and lands in ex.Failures.
func (b *Book) evaluateStops(ex *Execution) {
	for {
		fired := false

		keepAsks := b.stopAsks[:0]
		for _, o := range b.stopAsks {
			if b.triggered(o) {
				if !b.execStop(o, ex) {
					ex.fail(o)
				}
				fired = true
				continue
			}
			keepAsks = append(keepAsks, o)
		}
		b.stopAsks = keepAsks

		keepBids := b.stopBids[:0]
		for _, o := range b.stopBids {
			if b.triggered(o) {
				if !b.execStop(o, ex) {
					ex.fail(o)
				}
				fired = true
				continue
			}
			keepBids = append(keepBids, o)
		}
		b.stopBids = keepBids

		if !fired {
			return
		}
	}
}

// execStop runs a stop order as a market order reusing the stop's original
// id. Reports false when the opposite side cannot fully fill it.
func (b *Book) execStop(o *Order, ex *Execution) bool {
	opp := b.sideFor(o.Side.Opposite())
	if opp.Empty() || opp.AvailableTo(o.Owner) < o.Size {
		return false
	}

	b.match(o.Side, o.Owner, o.Size, nil, ex)
	ex.trade(o.ID, o.Side, Stop, o.Size, o.Price, o.Owner)
	b.refresh()
	return true
}
