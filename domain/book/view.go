package book

// LevelView is an aggregate snapshot of one price level.
type LevelView struct {
	Price int64 `json:"price"`
	Size  int64 `json:"size"`
	Total int64 `json:"total"`
	Count int   `json:"count"`
}

// StopView describes one pending stop order.
type StopView struct {
	OrderID uint64 `json:"orderId"`
	Side    Side   `json:"type"`
	Size    int64  `json:"size"`
	Price   int64  `json:"price"`
}

// Snapshot is a point-in-time aggregate view of the whole book, levels
// ordered best first.
type Snapshot struct {
	Asks     []LevelView `json:"asks"`
	Bids     []LevelView `json:"bids"`
	StopAsks []StopView  `json:"stopAsks"`
	StopBids []StopView  `json:"stopBids"`
	BestAsk  int64       `json:"bestAsk"`
	BestBid  int64       `json:"bestBid"`
	Spread   int64       `json:"spread"`
}

// BestAsk returns the lowest resting ask price, 0 when the side is empty.
func (b *Book) BestAsk() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestAsk
}

// BestBid returns the highest resting bid price, 0 when the side is empty.
func (b *Book) BestBid() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestBid
}

// Spread returns bestAsk-bestBid, or -1 when either side is empty.
func (b *Book) Spread() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spread
}

// AvailableSize reports the resting size on the given side that does not
// belong to owner, i.e. the liquidity a market order from owner taking that
// side's opposite could consume.
func (b *Book) AvailableSize(owner string, side Side) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sideFor(side).AvailableTo(owner)
}

// UserStopOrders lists owner's pending stop orders in arrival order, ask
// stops first.
func (b *Book) UserStopOrders(owner string) []StopView {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]StopView, 0, 4)
	for _, o := range b.stopAsks {
		if o.Owner == owner {
			out = append(out, stopView(o))
		}
	}
	for _, o := range b.stopBids {
		if o.Owner == owner {
			out = append(out, stopView(o))
		}
	}
	return out
}

// Snapshot renders the aggregate book view under a single lock acquisition.
func (b *Book) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Asks:     make([]LevelView, 0, b.asks.Len()),
		Bids:     make([]LevelView, 0, b.bids.Len()),
		StopAsks: make([]StopView, 0, len(b.stopAsks)),
		StopBids: make([]StopView, 0, len(b.stopBids)),
		BestAsk:  b.bestAsk,
		BestBid:  b.bestBid,
		Spread:   b.spread,
	}
	b.asks.Walk(func(lvl *PriceLevel) bool {
		snap.Asks = append(snap.Asks, levelView(lvl))
		return true
	})
	b.bids.Walk(func(lvl *PriceLevel) bool {
		snap.Bids = append(snap.Bids, levelView(lvl))
		return true
	})
	for _, o := range b.stopAsks {
		snap.StopAsks = append(snap.StopAsks, stopView(o))
	}
	for _, o := range b.stopBids {
		snap.StopBids = append(snap.StopBids, stopView(o))
	}
	return snap
}

func levelView(lvl *PriceLevel) LevelView {
	return LevelView{Price: lvl.Price, Size: lvl.Size, Total: lvl.Total, Count: lvl.Count}
}

func stopView(o *Order) StopView {
	return StopView{OrderID: o.ID, Side: o.Side, Size: o.Size, Price: o.Price}
}
