// Package tradelog aggregates executed trades into daily OHLC statistics
// for the price-history query. The durable trade record lives in the ledger
// topic; this log only serves reads.
package tradelog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"cross/domain/book"
)

// DailyStats is one day's open/high/low/close, prices in the order the
// trades executed.
type DailyStats struct {
	Day   int   `json:"day"`
	Open  int64 `json:"open"`
	High  int64 `json:"high"`
	Low   int64 `json:"low"`
	Close int64 `json:"close"`

	lastTS int64
}

type monthKey struct {
	year  int
	month time.Month
}

// Log groups trades by GMT calendar day. Safe for concurrent use.
type Log struct {
	mu   sync.RWMutex
	days map[monthKey]map[int]*DailyStats
}

func NewLog() *Log {
	return &Log{days: map[monthKey]map[int]*DailyStats{}}
}

// Record folds one trade into its day's stats. Taker records of market and
// stop executions carry no market price and are skipped; the maker legs
// carry the executed prices.
func (l *Log) Record(t book.Trade) error {
	if t.Kind != book.Limit || t.Price <= 0 {
		return nil
	}

	ts := time.Unix(t.Timestamp, 0).UTC()
	key := monthKey{year: ts.Year(), month: ts.Month()}
	day := ts.Day()

	l.mu.Lock()
	defer l.mu.Unlock()

	month := l.days[key]
	if month == nil {
		month = map[int]*DailyStats{}
		l.days[key] = month
	}

	ds := month[day]
	if ds == nil {
		month[day] = &DailyStats{
			Day: day, Open: t.Price, High: t.Price, Low: t.Price,
			Close: t.Price, lastTS: t.Timestamp,
		}
		return nil
	}

	if t.Price > ds.High {
		ds.High = t.Price
	}
	if t.Price < ds.Low {
		ds.Low = t.Price
	}
	if t.Timestamp >= ds.lastTS {
		ds.Close = t.Price
		ds.lastTS = t.Timestamp
	}
	return nil
}

// History returns the per-day stats for a month given as MMYYYY, ascending
// by day. Days without trades are absent.
func (l *Log) History(month string) ([]DailyStats, error) {
	ts, err := time.Parse("012006", month)
	if err != nil {
		return nil, fmt.Errorf("malformed month %q: want MMYYYY", month)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]DailyStats, 0, 31)
	for _, ds := range l.days[monthKey{year: ts.Year(), month: ts.Month()}] {
		out = append(out, *ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}
