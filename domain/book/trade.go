package book

import "time"

// Notification type tags, as delivered to clients.
const (
	NoticeClosedTrades = "closedTrades"
	NoticeOrderFailed  = "orderFailed"
)

// Trade is one executed (or, for failure notices, rejected) leg. OrderID is
// the id of the order the leg belongs to: the resting order for maker legs,
// the incoming order for the taker's aggregate record. Market taker records
// carry price 0; stop taker records carry the stop price.
type Trade struct {
	OrderID   uint64 `json:"orderId"`
	Side      Side   `json:"type"`
	Kind      Kind   `json:"orderType"`
	Size      int64  `json:"size"`
	Price     int64  `json:"price"`
	Timestamp int64  `json:"timestamp"`
	Owner     string `json:"username"`
}

// Notification is the event pushed to a single user: either the trades that
// closed for them or a single failed order.
type Notification struct {
	Notification string  `json:"notification"`
	Trades       []Trade `json:"trades"`
}

// TradeRecorder is the trade ledger sink. The engine requires a successful,
// order-preserving append; durability is the implementation's contract.
type TradeRecorder interface {
	Record(t Trade) error
}

// Notifier pushes execution/failure events to a user. Best-effort: a lost
// notification never rolls back a committed match.
type Notifier interface {
	Notify(owner string, n Notification)
}

// Execution collects everything a single engine operation produced, so the
// caller can dispatch ledger writes and notifications after the book lock is
// released. Trades are in execution order; Failures are stop orders that
// triggered but could not fill.
type Execution struct {
	OrderID   uint64
	Remaining int64
	Trades    []Trade
	Failures  []Trade
}

func (e *Execution) trade(id uint64, side Side, kind Kind, size, price int64, owner string) {
	e.Trades = append(e.Trades, Trade{
		OrderID:   id,
		Side:      side,
		Kind:      kind,
		Size:      size,
		Price:     price,
		Timestamp: time.Now().Unix(),
		Owner:     owner,
	})
}

func (e *Execution) fail(o *Order) {
	e.Failures = append(e.Failures, Trade{
		OrderID:   o.ID,
		Side:      o.Side,
		Kind:      Stop,
		Size:      o.Size,
		Price:     o.Price,
		Timestamp: time.Now().Unix(),
		Owner:     o.Owner,
	})
}
