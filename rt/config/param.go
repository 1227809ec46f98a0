package config

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Param is the uniform view of a registered parameter.
//
// The set of implementations is closed: *Number, *Boolean and *Enum.
// Typed call sites obtain the concrete variant via MustNumber / MustBoolean / MustEnum.
type Param interface {
	Name() string
	Type() Type
	Flags() Flags

	// Describe returns a point-in-time view of the parameter.
	Describe() Item

	// SetFromString parses s for the parameter type and sets it (administrative path).
	SetFromString(s string) error

	// ResetToDefault restores the declared default. It is permitted for hidden
	// parameters even when the registry is serving.
	ResetToDefault() error

	override() (OverrideItem, bool)
}

type origin int

const (
	originRuntime origin = iota
	originReset
)

// base holds the state shared by all variants.
//
// Writes go through two critical sections that never overlap: commit (commitMu)
// stores the value, then notify (the gate) runs modify callbacks.
type base struct {
	r     *Registry
	name  string
	flags Flags

	commitMu sync.Mutex
	seq      uint64 // protected by commitMu

	notify   gate
	notified uint64 // protected by notify

	source                atomic.Int32 // Source
	lastUpdatedAtUnixNano atomic.Int64
}

func (b *base) Name() string { return b.name }

func (b *base) Flags() Flags { return b.flags }

// Source returns where the current effective value comes from.
func (b *base) Source() Source { return Source(b.source.Load()) }

// LastUpdatedAt returns the time of the last successful write. Zero means never updated.
func (b *base) LastUpdatedAt() time.Time {
	ns := b.lastUpdatedAtUnixNano.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Mutable reports whether a runtime write is currently permitted.
func (b *base) Mutable() bool {
	return !b.flags.Hidden() || b.r == nil || !b.r.Serving()
}

func (b *base) checkWrite(o origin) error {
	if o == originRuntime && !b.Mutable() {
		return &ImmutableParameterError{Name: b.name}
	}
	if b.notify.heldByCaller() {
		return fmt.Errorf("%w: %q", ErrReentrantWrite, b.name)
	}
	return nil
}

// commit runs store under the commit lock and returns its sequence number.
func (b *base) commit(store func(), isDefault bool) uint64 {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	store()
	if isDefault {
		b.source.Store(int32(SourceDefault))
	} else {
		b.source.Store(int32(SourceRuntimeSet))
	}
	b.lastUpdatedAtUnixNano.Store(time.Now().UnixNano())
	b.seq++
	return b.seq
}

// notifyCommitted runs fn for the commit identified by seq. It must be called
// without holding commitMu.
//
// A commit that was overtaken by a later, already notified commit is skipped so
// that the applied state never moves backwards.
func (b *base) notifyCommitted(seq uint64, value any, fns int, fn func()) {
	if fns == 0 {
		return
	}
	if err := b.notify.lock(); err != nil {
		b.r.logger().Warn("modify callback skipped", "name", b.name, "value", value, "err", err)
		return
	}
	defer b.notify.unlock()

	if seq < b.notified {
		b.r.logger().Debug("stale modify callback skipped", "name", b.name, "value", value)
		return
	}
	b.notified = seq
	fn()
}

// safeCall runs a single callback, logging and swallowing panics.
func (b *base) safeCall(value any, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			b.r.logger().Error("modify callback panicked", "name", b.name, "value", value, "panic", p)
		}
	}()
	fn()
}
