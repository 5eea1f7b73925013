package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"cross/domain/book"
	"cross/domain/tradelog"
	"cross/infra/cache"
	"cross/infra/outbox"
)

// OrderService coordinates one engine operation end to end: run it on the
// book, then fan the resulting execution out to the ledger, the trade log,
// the notification outbox, and connected clients. The book call is the only
// part that holds the book lock.
type OrderService struct {
	book     *book.Book
	ledger   book.TradeRecorder
	trades   *tradelog.Log
	outbox   *outbox.Outbox
	notifier book.Notifier
	cache    *cache.Cache
	log      *zap.Logger
}

// NewOrderService wires all dependencies. outbox, notifier, and cache may be
// nil; the corresponding fan-out leg is skipped.
func NewOrderService(
	b *book.Book,
	ledger book.TradeRecorder,
	trades *tradelog.Log,
	ob *outbox.Outbox,
	notifier book.Notifier,
	c *cache.Cache,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		book:     b,
		ledger:   ledger,
		trades:   trades,
		outbox:   ob,
		notifier: notifier,
		cache:    c,
		log:      log,
	}
}

// Book exposes read-only access for query handlers.
func (s *OrderService) Book() *book.Book {
	return s.book
}

// History serves the price-history query.
func (s *OrderService) History(month string) ([]tradelog.DailyStats, error) {
	return s.trades.History(month)
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

func (s *OrderService) SubmitLimit(owner string, side book.Side, size, price int64) (uint64, error) {
	ex, err := s.book.SubmitLimit(owner, side, size, price)
	if err != nil {
		return 0, err
	}
	s.dispatch(ex)
	return ex.OrderID, nil
}

func (s *OrderService) SubmitMarket(owner string, side book.Side, size int64) (uint64, error) {
	ex, err := s.book.SubmitMarket(owner, side, size)
	if err != nil {
		return 0, err
	}
	s.dispatch(ex)
	return ex.OrderID, nil
}

func (s *OrderService) SubmitStop(owner string, side book.Side, size, stopPrice int64) (uint64, error) {
	ex, err := s.book.SubmitStop(owner, side, size, stopPrice)
	if err != nil {
		return 0, err
	}
	s.dispatch(ex)
	return ex.OrderID, nil
}

func (s *OrderService) Cancel(id uint64, owner string) error {
	ex, err := s.book.Cancel(id, owner)
	if err != nil {
		return err
	}
	s.dispatch(ex)
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Fan-out
// ──────────────────────────────────────────────────────────
//

// dispatch runs after the book has released its lock. Ledger order matches
// execution order. Notifications are grouped per owner: one closedTrades
// envelope with all of an owner's legs, one orderFailed envelope per
// triggered-but-unfilled stop.
func (s *OrderService) dispatch(ex *book.Execution) {
	for _, t := range ex.Trades {
		if s.ledger != nil {
			if err := s.ledger.Record(t); err != nil {
				s.log.Error("ledger append failed",
					zap.Uint64("orderId", t.OrderID),
					zap.Error(err))
			}
		}
		if s.trades != nil {
			_ = s.trades.Record(t)
		}
	}

	for owner, trades := range groupByOwner(ex.Trades) {
		s.send(owner, book.Notification{
			Notification: book.NoticeClosedTrades,
			Trades:       trades,
		})
	}
	for _, f := range ex.Failures {
		s.send(f.Owner, book.Notification{
			Notification: book.NoticeOrderFailed,
			Trades:       []book.Trade{f},
		})
	}

	if s.cache != nil {
		if err := s.cache.PublishTop(context.Background(), s.book); err != nil {
			s.log.Warn("top-of-book publish failed", zap.Error(err))
		}
	}
}

// send delivers one notification on both legs: durable (outbox, drained to
// the broker by the broadcaster) and immediate (in-process push). The
// immediate leg is best-effort.
func (s *OrderService) send(owner string, n book.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error("notification marshal failed", zap.Error(err))
		return
	}

	if s.outbox != nil {
		if _, err := s.outbox.Append(owner, payload); err != nil {
			s.log.Error("outbox append failed",
				zap.String("owner", owner),
				zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(owner, n)
	}
}

// groupByOwner preserves execution order within each owner's slice.
func groupByOwner(trades []book.Trade) map[string][]book.Trade {
	out := make(map[string][]book.Trade)
	for _, t := range trades {
		out[t.Owner] = append(out[t.Owner], t)
	}
	return out
}
