package config

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Number is a bounded int64 parameter. min <= Get() <= max always holds.
type Number struct {
	base

	def int64
	min int64
	max int64

	validate func(int64) error
	onModify []func(int64)

	cur atomic.Int64
}

func (n *Number) Type() Type { return TypeNumber }

// Get returns the current value.
//
// It is lock-free, allocation-free and non-blocking.
func (n *Number) Get() int64 { return n.cur.Load() }

func (n *Number) Default() int64 { return n.def }
func (n *Number) Min() int64     { return n.min }
func (n *Number) Max() int64     { return n.max }

// Range returns the inclusive bounds as "[min, max]".
func (n *Number) Range() string { return fmt.Sprintf("[%d, %d]", n.min, n.max) }

// Set validates v, commits it and then runs modify callbacks.
//
// On error the current value is unchanged and no callback runs.
func (n *Number) Set(v int64) error { return n.set(v, originRuntime) }

// ResetToDefault restores the declared default.
func (n *Number) ResetToDefault() error { return n.set(n.def, originReset) }

func (n *Number) SetFromString(s string) error {
	v, err := parseInt64Base10(s)
	if err != nil {
		return fmt.Errorf("%w: %q expects base10 integer, got %q: %v", ErrInvalidValue, n.name, s, err)
	}
	return n.Set(v)
}

func (n *Number) set(v int64, o origin) error {
	if err := n.checkWrite(o); err != nil {
		return err
	}
	if err := n.check(v); err != nil {
		return err
	}
	seq := n.commit(func() { n.cur.Store(v) }, v == n.def)
	n.notifyCommitted(seq, v, len(n.onModify), func() {
		for _, fn := range n.onModify {
			n.safeCall(v, func() { fn(v) })
		}
	})
	return nil
}

func (n *Number) check(v int64) error {
	if v < n.min || v > n.max {
		return &OutOfRangeError{Name: n.name, Value: v, Range: n.Range()}
	}
	if n.validate != nil {
		if err := n.validate(v); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidArgument, n.name, err)
		}
	}
	return nil
}

func (n *Number) Describe() Item {
	minStr := strconv.FormatInt(n.min, 10)
	maxStr := strconv.FormatInt(n.max, 10)
	return Item{
		Name:          n.name,
		Type:          TypeNumber,
		Value:         n.Get(),
		DefaultValue:  n.def,
		Mutable:       n.Mutable(),
		Source:        n.Source(),
		LastUpdatedAt: n.LastUpdatedAt(),
		Constraints:   Constraints{Min: &minStr, Max: &maxStr},
	}
}

func (n *Number) override() (OverrideItem, bool) {
	cur := n.Get()
	if cur == n.def {
		return OverrideItem{}, false
	}
	return OverrideItem{Name: n.name, Type: TypeNumber, Value: strconv.FormatInt(cur, 10)}, true
}
