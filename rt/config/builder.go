package config

import (
	"fmt"
	"strings"
)

// NumberBuilder assembles a Number.
//
//	n := config.NewNumberBuilder("max-indexes", 10, 1, math.MaxUint32).
//		WithModifyCallback(onChange).
//		MustBuild(reg)
type NumberBuilder struct {
	name          string
	def, min, max int64
	flags         Flags
	validate      func(int64) error
	onModify      []func(int64)
}

// NewNumberBuilder starts a Number with inclusive bounds [min, max].
func NewNumberBuilder(name string, def, min, max int64) *NumberBuilder {
	return &NumberBuilder{name: name, def: def, min: min, max: max}
}

// WithValidationCallback sets a check that runs after the bounds check and before commit.
func (b *NumberBuilder) WithValidationCallback(fn func(int64) error) *NumberBuilder {
	b.validate = fn
	return b
}

// WithModifyCallback appends a callback that runs after a value is committed.
//
// Callbacks run outside the commit lock, in registration order. A panic is logged
// and does not revert the committed value.
func (b *NumberBuilder) WithModifyCallback(fn func(int64)) *NumberBuilder {
	if fn != nil {
		b.onModify = append(b.onModify, fn)
	}
	return b
}

func (b *NumberBuilder) WithFlags(f Flags) *NumberBuilder {
	b.flags = f
	return b
}

// Build creates the Number and registers it into r (Default() if r is nil).
func (b *NumberBuilder) Build(r *Registry) (*Number, error) {
	if r == nil {
		r = Default()
	}
	if err := validateKey(b.name); err != nil {
		return nil, err
	}
	if b.min > b.max {
		return nil, fmt.Errorf("%w: %q min(%d) > max(%d)", ErrInvalidConfig, b.name, b.min, b.max)
	}
	n := &Number{
		base:     base{r: r, name: b.name, flags: b.flags},
		def:      b.def,
		min:      b.min,
		max:      b.max,
		validate: b.validate,
		onModify: append([]func(int64){}, b.onModify...),
	}
	if err := n.check(b.def); err != nil {
		return nil, fmt.Errorf("%w: default value: %w", ErrInvalidConfig, err)
	}
	n.cur.Store(b.def)
	n.source.Store(int32(SourceDefault))

	if err := r.register(n); err != nil {
		return nil, err
	}
	return n, nil
}

// MustBuild is like Build but panics on error.
func (b *NumberBuilder) MustBuild(r *Registry) *Number {
	n, err := b.Build(r)
	if err != nil {
		panic(err)
	}
	return n
}

// BooleanBuilder assembles a Boolean.
type BooleanBuilder struct {
	name     string
	def      bool
	flags    Flags
	validate func(bool) error
	onModify []func(bool)
}

func NewBooleanBuilder(name string, def bool) *BooleanBuilder {
	return &BooleanBuilder{name: name, def: def}
}

func (b *BooleanBuilder) WithValidationCallback(fn func(bool) error) *BooleanBuilder {
	b.validate = fn
	return b
}

func (b *BooleanBuilder) WithModifyCallback(fn func(bool)) *BooleanBuilder {
	if fn != nil {
		b.onModify = append(b.onModify, fn)
	}
	return b
}

func (b *BooleanBuilder) WithFlags(f Flags) *BooleanBuilder {
	b.flags = f
	return b
}

// Build creates the Boolean and registers it into r (Default() if r is nil).
func (b *BooleanBuilder) Build(r *Registry) (*Boolean, error) {
	if r == nil {
		r = Default()
	}
	if err := validateKey(b.name); err != nil {
		return nil, err
	}
	v := &Boolean{
		base:     base{r: r, name: b.name, flags: b.flags},
		def:      b.def,
		validate: b.validate,
		onModify: append([]func(bool){}, b.onModify...),
	}
	if err := v.check(b.def); err != nil {
		return nil, fmt.Errorf("%w: default value: %w", ErrInvalidConfig, err)
	}
	v.cur.Store(b.def)
	v.source.Store(int32(SourceDefault))

	if err := r.register(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b *BooleanBuilder) MustBuild(r *Registry) *Boolean {
	v, err := b.Build(r)
	if err != nil {
		panic(err)
	}
	return v
}

// EnumBuilder assembles an Enum from index-aligned names and codes.
type EnumBuilder struct {
	name     string
	def      int
	names    []string
	codes    []int
	flags    Flags
	validate func(int) error
	onModify []func(int)
}

// NewEnumBuilder starts an Enum. def is a code; names and codes are copied.
func NewEnumBuilder(name string, def int, names []string, codes []int) *EnumBuilder {
	return &EnumBuilder{
		name:  name,
		def:   def,
		names: append([]string(nil), names...),
		codes: append([]int(nil), codes...),
	}
}

func (b *EnumBuilder) WithValidationCallback(fn func(int) error) *EnumBuilder {
	b.validate = fn
	return b
}

func (b *EnumBuilder) WithModifyCallback(fn func(int)) *EnumBuilder {
	if fn != nil {
		b.onModify = append(b.onModify, fn)
	}
	return b
}

func (b *EnumBuilder) WithFlags(f Flags) *EnumBuilder {
	b.flags = f
	return b
}

// Build creates the Enum and registers it into r (Default() if r is nil).
//
// names and codes must be non-empty, of equal length and free of duplicates
// (names compare case-insensitively).
func (b *EnumBuilder) Build(r *Registry) (*Enum, error) {
	if r == nil {
		r = Default()
	}
	if err := validateKey(b.name); err != nil {
		return nil, err
	}
	if len(b.names) == 0 {
		return nil, fmt.Errorf("%w: %q enum domain is required", ErrInvalidConfig, b.name)
	}
	if len(b.names) != len(b.codes) {
		return nil, fmt.Errorf("%w: %q enum has %d names but %d codes", ErrInvalidConfig, b.name, len(b.names), len(b.codes))
	}
	byCode := make(map[int]uint32, len(b.codes))
	byName := make(map[string]uint32, len(b.names))
	for i := range b.names {
		n := strings.ToLower(b.names[i])
		if n == "" {
			return nil, fmt.Errorf("%w: %q enum name at %d is empty", ErrInvalidConfig, b.name, i)
		}
		if _, ok := byName[n]; ok {
			return nil, fmt.Errorf("%w: %q enum contains duplicate name %q", ErrInvalidConfig, b.name, b.names[i])
		}
		if _, ok := byCode[b.codes[i]]; ok {
			return nil, fmt.Errorf("%w: %q enum contains duplicate code %d", ErrInvalidConfig, b.name, b.codes[i])
		}
		byName[n] = uint32(i)
		byCode[b.codes[i]] = uint32(i)
	}
	e := &Enum{
		base:     base{r: r, name: b.name, flags: b.flags},
		names:    b.names,
		codes:    b.codes,
		byCode:   byCode,
		byName:   byName,
		validate: b.validate,
		onModify: append([]func(int){}, b.onModify...),
	}
	defIdx, err := e.check(b.def)
	if err != nil {
		return nil, fmt.Errorf("%w: default value: %w", ErrInvalidConfig, err)
	}
	e.defIdx = defIdx
	e.curIdx.Store(defIdx)
	e.source.Store(int32(SourceDefault))

	if err := r.register(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (b *EnumBuilder) MustBuild(r *Registry) *Enum {
	e, err := b.Build(r)
	if err != nil {
		panic(err)
	}
	return e
}
