package config

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Boolean is an on/off parameter.
type Boolean struct {
	base

	def bool

	validate func(bool) error
	onModify []func(bool)

	cur atomic.Bool
}

func (b *Boolean) Type() Type { return TypeBool }

// Get returns the current value.
//
// It is lock-free, allocation-free and non-blocking.
func (b *Boolean) Get() bool { return b.cur.Load() }

func (b *Boolean) Default() bool { return b.def }

// Set validates v, commits it and then runs modify callbacks.
func (b *Boolean) Set(v bool) error { return b.set(v, originRuntime) }

// ResetToDefault restores the declared default.
func (b *Boolean) ResetToDefault() error { return b.set(b.def, originReset) }

// SetFromString accepts (case-insensitive) true/false, t/f, 1/0, yes/no, y/n, on/off.
func (b *Boolean) SetFromString(s string) error {
	v, ok := parseBoolLoose(s)
	if !ok {
		return fmt.Errorf("%w: %q expects bool (true/false, t/f, 1/0, yes/no, on/off), got %q", ErrInvalidValue, b.name, s)
	}
	return b.Set(v)
}

func (b *Boolean) set(v bool, o origin) error {
	if err := b.checkWrite(o); err != nil {
		return err
	}
	if err := b.check(v); err != nil {
		return err
	}
	seq := b.commit(func() { b.cur.Store(v) }, v == b.def)
	b.notifyCommitted(seq, v, len(b.onModify), func() {
		for _, fn := range b.onModify {
			b.safeCall(v, func() { fn(v) })
		}
	})
	return nil
}

func (b *Boolean) check(v bool) error {
	if b.validate != nil {
		if err := b.validate(v); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidArgument, b.name, err)
		}
	}
	return nil
}

func (b *Boolean) Describe() Item {
	return Item{
		Name:          b.name,
		Type:          TypeBool,
		Value:         b.Get(),
		DefaultValue:  b.def,
		Mutable:       b.Mutable(),
		Source:        b.Source(),
		LastUpdatedAt: b.LastUpdatedAt(),
	}
}

func (b *Boolean) override() (OverrideItem, bool) {
	cur := b.Get()
	if cur == b.def {
		return OverrideItem{}, false
	}
	return OverrideItem{Name: b.name, Type: TypeBool, Value: strconv.FormatBool(cur)}, true
}
