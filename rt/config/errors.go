package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey indicates the parameter name is empty or contains invalid characters.
	ErrInvalidKey = errors.New("config: invalid name")
	// ErrAlreadyRegistered indicates the same name is registered more than once.
	ErrAlreadyRegistered = errors.New("config: already registered")
	// ErrInvalidValue indicates a string value could not be parsed for the parameter type.
	ErrInvalidValue = errors.New("config: invalid value")
	// ErrOutOfRange indicates a candidate value is outside the declared bounds or domain.
	ErrOutOfRange = errors.New("config: value out of range")
	// ErrInvalidArgument indicates a candidate value is rejected by a validation callback.
	ErrInvalidArgument = errors.New("config: invalid argument")
	// ErrImmutable indicates a runtime write to a start-up-only parameter.
	ErrImmutable = errors.New("config: parameter is immutable at runtime")
	// ErrTypeMismatch indicates the name exists but the type does not match.
	ErrTypeMismatch = errors.New("config: type mismatch")
	// ErrInvalidConfig indicates a registration-time configuration error.
	ErrInvalidConfig = errors.New("config: invalid config")

	// ErrNotFound indicates the name is not registered.
	ErrNotFound = errors.New("config: parameter not found")
	// ErrReentrantWrite indicates a parameter is written from its own modify callback.
	ErrReentrantWrite = errors.New("config: re-entrant write in modify callback")
)

// OutOfRangeError reports a candidate outside a parameter's bounds or domain.
type OutOfRangeError struct {
	Name  string
	Value int64
	// Range is the valid range or domain, e.g. "[1, 1024]" or "{warning=0, notice=1}".
	Range string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("config: %q value %d is out of range %s", e.Name, e.Value, e.Range)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// ImmutableParameterError reports a runtime write to a hidden (start-up-only) parameter.
type ImmutableParameterError struct {
	Name string
}

func (e *ImmutableParameterError) Error() string {
	return fmt.Sprintf("config: %q can only be set during start-up", e.Name)
}

func (e *ImmutableParameterError) Is(target error) bool { return target == ErrImmutable }

// DuplicateRegistrationError reports a second registration under an existing name.
type DuplicateRegistrationError struct {
	Name string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("config: %q is already registered", e.Name)
}

func (e *DuplicateRegistrationError) Is(target error) bool { return target == ErrAlreadyRegistered }
