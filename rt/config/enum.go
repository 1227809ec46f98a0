package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Enum is a parameter whose value is one code out of a declared domain.
//
// The domain is a pair of index-aligned sequences: names[i] is the name of codes[i].
type Enum struct {
	base

	names  []string
	codes  []int
	byCode map[int]uint32
	byName map[string]uint32 // lower-cased names

	defIdx uint32

	validate func(int) error
	onModify []func(int)

	curIdx atomic.Uint32
}

func (e *Enum) Type() Type { return TypeEnum }

// Get returns the current code.
//
// It is lock-free, allocation-free and non-blocking.
func (e *Enum) Get() int { return e.codes[e.curIdx.Load()] }

// GetName returns the name of the current code.
func (e *Enum) GetName() string { return e.names[e.curIdx.Load()] }

func (e *Enum) Default() int { return e.codes[e.defIdx] }

// Names returns a copy of the declared names.
func (e *Enum) Names() []string { return append([]string(nil), e.names...) }

// Codes returns a copy of the declared codes, aligned with Names.
func (e *Enum) Codes() []int { return append([]int(nil), e.codes...) }

// NameOf returns the name declared for code.
func (e *Enum) NameOf(code int) (string, bool) {
	i, ok := e.byCode[code]
	if !ok {
		return "", false
	}
	return e.names[i], true
}

// Range returns the domain as "{name=code, ...}".
func (e *Enum) Range() string {
	return "{" + strings.Join(e.domain(), ", ") + "}"
}

// Set validates code, commits it and then runs modify callbacks.
func (e *Enum) Set(code int) error { return e.set(code, originRuntime) }

// SetName sets the code declared for name (case-insensitive).
func (e *Enum) SetName(name string) error {
	i, ok := e.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("%w: %q enum name %q not in %s", ErrInvalidValue, e.name, name, e.Range())
	}
	return e.Set(e.codes[i])
}

// ResetToDefault restores the declared default.
func (e *Enum) ResetToDefault() error { return e.set(e.codes[e.defIdx], originReset) }

// SetFromString accepts a declared name (case-insensitive) or a numeric code.
func (e *Enum) SetFromString(s string) error {
	if _, ok := e.byName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return e.SetName(s)
	}
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%w: %q enum value %q not in %s", ErrInvalidValue, e.name, s, e.Range())
	}
	return e.Set(code)
}

func (e *Enum) set(code int, o origin) error {
	if err := e.checkWrite(o); err != nil {
		return err
	}
	idx, err := e.check(code)
	if err != nil {
		return err
	}
	seq := e.commit(func() { e.curIdx.Store(idx) }, idx == e.defIdx)
	e.notifyCommitted(seq, code, len(e.onModify), func() {
		for _, fn := range e.onModify {
			e.safeCall(code, func() { fn(code) })
		}
	})
	return nil
}

func (e *Enum) check(code int) (uint32, error) {
	idx, ok := e.byCode[code]
	if !ok {
		return 0, &OutOfRangeError{Name: e.name, Value: int64(code), Range: e.Range()}
	}
	if e.validate != nil {
		if err := e.validate(code); err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidArgument, e.name, err)
		}
	}
	return idx, nil
}

func (e *Enum) domain() []string {
	out := make([]string, len(e.names))
	for i := range e.names {
		out[i] = e.names[i] + "=" + strconv.Itoa(e.codes[i])
	}
	return out
}

func (e *Enum) Describe() Item {
	return Item{
		Name:          e.name,
		Type:          TypeEnum,
		Value:         e.GetName(),
		DefaultValue:  e.names[e.defIdx],
		Mutable:       e.Mutable(),
		Source:        e.Source(),
		LastUpdatedAt: e.LastUpdatedAt(),
		Constraints:   Constraints{Domain: e.domain()},
	}
}

func (e *Enum) override() (OverrideItem, bool) {
	idx := e.curIdx.Load()
	if idx == e.defIdx {
		return OverrideItem{}, false
	}
	return OverrideItem{Name: e.name, Type: TypeEnum, Value: e.names[idx]}, true
}
