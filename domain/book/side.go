package book

import "github.com/tidwall/btree"

// bookSide is one ordered half of the book: price → PriceLevel, unique keys.
// Asks iterate ascending (lowest sell first), bids descending (highest buy
// first), so the first level walked is always the best price.
type bookSide struct {
	levels *btree.Map[int64, *PriceLevel]
	desc   bool
}

func newBookSide(desc bool) *bookSide {
	return &bookSide{
		levels: btree.NewMap[int64, *PriceLevel](32),
		desc:   desc,
	}
}

func (s *bookSide) Empty() bool {
	return s.levels.Len() == 0
}

func (s *bookSide) Len() int {
	return s.levels.Len()
}

func (s *bookSide) Level(price int64) *PriceLevel {
	lvl, _ := s.levels.Get(price)
	return lvl
}

func (s *bookSide) GetOrCreate(price int64) *PriceLevel {
	if lvl, ok := s.levels.Get(price); ok {
		return lvl
	}
	lvl := &PriceLevel{Price: price}
	s.levels.Set(price, lvl)
	return lvl
}

func (s *bookSide) Delete(price int64) {
	s.levels.Delete(price)
}

// BestPrice returns the first price in walk order, ok=false when empty.
func (s *bookSide) BestPrice() (int64, bool) {
	if s.desc {
		p, _, ok := s.levels.Max()
		return p, ok
	}
	p, _, ok := s.levels.Min()
	return p, ok
}

// Walk visits levels best-first until fn returns false.
func (s *bookSide) Walk(fn func(*PriceLevel) bool) {
	iter := func(_ int64, lvl *PriceLevel) bool { return fn(lvl) }
	if s.desc {
		s.levels.Reverse(iter)
	} else {
		s.levels.Scan(iter)
	}
}

// Prices snapshots the keys best-first. Matching deletes emptied levels while
// walking, so it iterates over this copy rather than the live tree.
func (s *bookSide) Prices() []int64 {
	out := make([]int64, 0, s.levels.Len())
	s.Walk(func(lvl *PriceLevel) bool {
		out = append(out, lvl.Price)
		return true
	})
	return out
}

// TotalSize is the cumulative resting size across all levels.
func (s *bookSide) TotalSize() int64 {
	var total int64
	s.Walk(func(lvl *PriceLevel) bool {
		total += lvl.Size
		return true
	})
	return total
}

// AvailableTo is the resting size excluding the given owner's own orders.
func (s *bookSide) AvailableTo(owner string) int64 {
	var total int64
	s.Walk(func(lvl *PriceLevel) bool {
		total += lvl.FilteredSize(owner)
		return true
	})
	return total
}
