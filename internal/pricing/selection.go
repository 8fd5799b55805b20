package pricing

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownItem is returned when an action names an item the catalog lacks.
	ErrUnknownItem = errors.New("unknown item")
	// ErrNegativeQuantity is returned when a quantity below zero is requested.
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	// ErrUnknownAction is returned by Apply for unrecognised action types.
	ErrUnknownAction = errors.New("unknown action")
	// ErrQuantityTooLarge is returned when a quantity would exceed MaxQuantity.
	ErrQuantityTooLarge = errors.New("quantity exceeds maximum")
)

// MaxQuantity is the largest quantity a single item may have.
const MaxQuantity = 999

func clampQuantity(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// CheckQuantities reports the first out-of-range quantity in sel, in name
// order.
func CheckQuantities(sel Selection) error {
	names := make([]string, 0, len(sel))
	for name := range sel {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch q := sel[name]; {
		case q < 0:
			return fmt.Errorf("%s: %w", name, ErrNegativeQuantity)
		case q > MaxQuantity:
			return fmt.Errorf("%s: %w", name, ErrQuantityTooLarge)
		}
	}
	return nil
}

// Selection maps item names to their selected quantity. Absent keys mean zero
// and stored quantities are always positive.
type Selection map[string]int

// Clone returns an independent copy without zero entries.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// IsEmpty reports whether no item has a positive quantity.
func (s Selection) IsEmpty() bool {
	for _, v := range s {
		if v > 0 {
			return false
		}
	}
	return true
}

// Equal compares two selections treating absent keys as zero.
func (s Selection) Equal(other Selection) bool {
	for k, v := range s {
		if other[k] != v {
			return false
		}
	}
	for k, v := range other {
		if s[k] != v {
			return false
		}
	}
	return true
}

// Count returns the total number of units selected.
func (s Selection) Count() int {
	n := 0
	for _, v := range s {
		if v > 0 {
			n += v
		}
	}
	return n
}

// Increment adds one unit of name.
func Increment(sel Selection, catalog Catalog, name string) (Selection, error) {
	if _, ok := catalog.Lookup(name); !ok {
		return sel.Clone(), ErrUnknownItem
	}
	next := sel.Clone()
	if next[name] >= MaxQuantity {
		return next, ErrQuantityTooLarge
	}
	next[name]++
	return next, nil
}

// Decrement removes one unit of name, never going below zero.
func Decrement(sel Selection, name string) Selection {
	next := sel.Clone()
	if q := next[name]; q > 1 {
		next[name] = q - 1
	} else {
		delete(next, name)
	}
	return next
}

// SetQuantity replaces the quantity of name. Zero removes the entry.
func SetQuantity(sel Selection, catalog Catalog, name string, n int) (Selection, error) {
	if n < 0 {
		return sel.Clone(), ErrNegativeQuantity
	}
	if n > MaxQuantity {
		return sel.Clone(), ErrQuantityTooLarge
	}
	if _, ok := catalog.Lookup(name); !ok {
		return sel.Clone(), ErrUnknownItem
	}
	next := sel.Clone()
	if n == 0 {
		delete(next, name)
	} else {
		next[name] = n
	}
	return next, nil
}

// ActionType enumerates the cart transitions.
type ActionType string

const (
	ActionIncrement ActionType = "increment"
	ActionDecrement ActionType = "decrement"
	ActionSet       ActionType = "set"
	ActionClear     ActionType = "clear"
)

// Action describes one user intent against a selection.
type Action struct {
	Type     ActionType `json:"type"`
	Item     string     `json:"item,omitempty"`
	Quantity int        `json:"quantity,omitempty"`
}

// Apply dispatches the action and returns the resulting selection.
func Apply(sel Selection, catalog Catalog, a Action) (Selection, error) {
	switch a.Type {
	case ActionIncrement:
		return Increment(sel, catalog, a.Item)
	case ActionDecrement:
		return Decrement(sel, a.Item), nil
	case ActionSet:
		return SetQuantity(sel, catalog, a.Item, a.Quantity)
	case ActionClear:
		return Selection{}, nil
	default:
		return sel.Clone(), ErrUnknownAction
	}
}
