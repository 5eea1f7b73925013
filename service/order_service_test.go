package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cross/domain/book"
	"cross/domain/tradelog"
	"cross/infra/outbox"
	"cross/infra/sequence"
)

type fakeLedger struct {
	trades []book.Trade
}

func (f *fakeLedger) Record(t book.Trade) error {
	f.trades = append(f.trades, t)
	return nil
}

type fakeNotifier struct {
	sent map[string][]book.Notification
}

func (f *fakeNotifier) Notify(owner string, n book.Notification) {
	if f.sent == nil {
		f.sent = map[string][]book.Notification{}
	}
	f.sent[owner] = append(f.sent[owner], n)
}

func newService(t *testing.T) (*OrderService, *fakeLedger, *fakeNotifier, *outbox.Outbox) {
	t.Helper()

	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ob.Close() })

	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc := NewOrderService(
		book.New(sequence.New(0)),
		ledger,
		tradelog.NewLog(),
		ob,
		notifier,
		nil,
		zap.NewNop(),
	)
	return svc, ledger, notifier, ob
}

func TestSubmitDispatchesTradesInOrder(t *testing.T) {
	svc, ledger, notifier, ob := newService(t)

	_, err := svc.SubmitLimit("alice", book.Bid, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, ledger.trades)

	id, err := svc.SubmitLimit("bob", book.Ask, 4, 100)
	require.NoError(t, err)

	require.Len(t, ledger.trades, 2)
	assert.Equal(t, "alice", ledger.trades[0].Owner)
	assert.Equal(t, id, ledger.trades[1].OrderID)

	// one closedTrades envelope per affected owner, on both legs
	require.Len(t, notifier.sent["alice"], 1)
	require.Len(t, notifier.sent["bob"], 1)
	assert.Equal(t, book.NoticeClosedTrades, notifier.sent["alice"][0].Notification)

	var owners []string
	require.NoError(t, ob.ScanPending(func(_ uint64, rec outbox.Record) error {
		owners = append(owners, rec.Owner)
		var n book.Notification
		require.NoError(t, json.Unmarshal(rec.Payload, &n))
		require.Equal(t, book.NoticeClosedTrades, n.Notification)
		return nil
	}))
	assert.ElementsMatch(t, []string{"alice", "bob"}, owners)
}

func TestFailedStopSendsOrderFailed(t *testing.T) {
	svc, ledger, notifier, _ := newService(t)

	_, err := svc.SubmitLimit("maker", book.Bid, 1, 100)
	require.NoError(t, err)

	// immediately triggered, cannot fully fill
	_, err = svc.SubmitStop("sam", book.Ask, 5, 100)
	require.NoError(t, err)

	assert.Empty(t, ledger.trades)
	require.Len(t, notifier.sent["sam"], 1)
	assert.Equal(t, book.NoticeOrderFailed, notifier.sent["sam"][0].Notification)
}

func TestRejectedMarketDispatchesNothing(t *testing.T) {
	svc, ledger, notifier, ob := newService(t)

	_, err := svc.SubmitMarket("alice", book.Bid, 5)
	require.ErrorIs(t, err, book.ErrNoLiquidity)

	assert.Empty(t, ledger.trades)
	assert.Empty(t, notifier.sent)

	var pending int
	require.NoError(t, ob.ScanPending(func(uint64, outbox.Record) error {
		pending++
		return nil
	}))
	assert.Zero(t, pending)
}

func TestCancelPassesThrough(t *testing.T) {
	svc, _, _, _ := newService(t)

	id, err := svc.SubmitLimit("alice", book.Bid, 10, 100)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Cancel(id, "mallory"), book.ErrNotFound)
	require.NoError(t, svc.Cancel(id, "alice"))
	assert.Empty(t, svc.Book().Snapshot().Bids)
}

func TestHistoryAggregatesDispatchedTrades(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.SubmitLimit("alice", book.Bid, 10, 100)
	require.NoError(t, err)
	_, err = svc.SubmitLimit("bob", book.Ask, 10, 100)
	require.NoError(t, err)

	month := time.Now().UTC().Format("012006")
	hist, err := svc.History(month)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, int64(100), hist[0].Open)
}
