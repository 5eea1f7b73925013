package book

// PriceLevel is the FIFO queue of resting limit orders at a single price.
// Size is the cumulative remaining size of the queue and Total the cumulative
// notional Price*Size; admission caps size and price below 2^31 so the
// product fits comfortably. Both aggregates are kept in sync on every
// mutation.
type PriceLevel struct {
	Price int64

	head *Order
	tail *Order

	Size  int64
	Total int64
	Count int
}

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.Count++
	p.Size += o.Size
	p.Total = p.Price * p.Size
}

// Consume fills qty units of a resting order in place. The order must have
// more than qty remaining; full consumption goes through Drop.
func (p *PriceLevel) Consume(o *Order, qty int64) {
	o.Size -= qty
	p.Size -= qty
	p.Total = p.Price * p.Size
}

// Drop removes a fully consumed or cancelled order from the queue and
// subtracts its remaining size from the aggregates.
func (p *PriceLevel) Drop(o *Order) {
	p.unlink(o)
	p.Count--
	p.Size -= o.Size
	p.Total = p.Price * p.Size
}

// Remove searches the queue for an order with the given id and owner. Both
// must match; a wrong owner looks the same as a missing order.
func (p *PriceLevel) Remove(id uint64, owner string) (*Order, bool) {
	for o := p.head; o != nil; o = o.next {
		if o.ID == id && o.Owner == owner {
			p.Drop(o)
			return o, true
		}
	}
	return nil, false
}

// FilteredSize returns the queue size excluding orders resting for the given
// owner. Used for the market-order admission check.
func (p *PriceLevel) FilteredSize(excluded string) int64 {
	filtered := p.Size
	for o := p.head; o != nil; o = o.next {
		if o.Owner == excluded {
			filtered -= o.Size
		}
	}
	return filtered
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Read-only helper
func (p *PriceLevel) Head() *Order {
	return p.head
}

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
}
