package book

import (
	"encoding/json"
	"fmt"
)

type Side int
type Kind int

const (
	Bid Side = iota
	Ask
)

const (
	Limit Kind = iota
	Market
	Stop
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Ask {
		return Bid
	}
	return Ask
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "ask":
		return Ask, nil
	case "bid":
		return Bid, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (k Kind) String() string {
	switch k {
	case Market:
		return "market"
	case Stop:
		return "stop"
	default:
		return "limit"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw {
	case "limit":
		*k = Limit
	case "market":
		*k = Market
	case "stop":
		*k = Stop
	default:
		return fmt.Errorf("unknown order kind %q", raw)
	}
	return nil
}

// Order is a pure domain entity. Identity (ID, Owner, Side, Kind, Price) is
// immutable after creation; Size is decremented in place on partial fills.
// For Limit orders Price is the limit price, for Stop orders the trigger
// price; Market orders carry no price.
//
// An order is owned by exactly one container at a time: the PriceLevel it
// rests in, or the stop queue it is pending in. It is never aliased.
type Order struct {
	ID    uint64
	Owner string
	Side  Side
	Kind  Kind
	Size  int64
	Price int64

	next *Order
	prev *Order
}

// Read-only traversal helper
func (o *Order) Next() *Order {
	return o.next
}
