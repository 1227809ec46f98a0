package config

import "time"

// Source indicates where the current effective value comes from.
type Source int

const (
	SourceDefault Source = iota
	SourceRuntimeSet
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceRuntimeSet:
		return "runtime-set"
	default:
		return "unknown"
	}
}

// Type indicates a parameter variant.
type Type string

const (
	TypeNumber Type = "number"
	TypeBool   Type = "bool"
	TypeEnum   Type = "enum"
)

// Flags controls parameter visibility.
type Flags uint32

const (
	// FlagDefault marks a parameter that can be changed at runtime.
	FlagDefault Flags = 0
	// FlagHidden marks a start-up-only parameter. It can be set until Registry.Serve
	// is called; afterwards runtime writes fail with ErrImmutable.
	FlagHidden Flags = 1 << 0
)

// Hidden reports whether FlagHidden is set.
func (f Flags) Hidden() bool { return f&FlagHidden != 0 }

// Constraints is a summary of the bounds or domain attached to a parameter.
type Constraints struct {
	Min *string `json:"min,omitempty"`
	Max *string `json:"max,omitempty"`

	// Domain lists enum entries as "name=code", in declaration order.
	Domain []string `json:"domain,omitempty"`
}

// Item is a point-in-time view of a single parameter.
type Item struct {
	Name string `json:"name"`

	Type Type `json:"type"`

	// Value is the current effective value: int64 for numbers, bool for booleans,
	// and the entry name for enums.
	Value any `json:"value"`

	DefaultValue any `json:"defaultValue"`

	// Mutable is false for hidden parameters once the registry is serving.
	Mutable bool `json:"mutable"`

	Source Source `json:"source"`

	// LastUpdatedAt is the timestamp of the last successful write. Zero means never updated.
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`

	Constraints Constraints `json:"constraints"`
}

// Snapshot is a view of all registered parameters, in declaration order.
type Snapshot struct {
	Items []Item `json:"items"`
}

// OverrideItem records a parameter whose value differs from its default.
//
// Value is the string form accepted by SetFromString.
type OverrideItem struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Value string `json:"value"`
}
