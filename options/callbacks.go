package options

import (
	"fmt"
	"math"
)

// ValidateHNSWBlockSize checks that a block size fits in an unsigned 32-bit integer.
func ValidateHNSWBlockSize(v int64) error {
	if v < MinHNSWBlockSize || v > math.MaxUint32 {
		return fmt.Errorf("block size must be between %d and %d", MinHNSWBlockSize, uint32(math.MaxUint32))
	}
	return nil
}

// ValidateLogLevel checks that code lies in [LogLevelWarning, LogLevelDebug].
func ValidateLogLevel(code int) error {
	if code >= LogLevelWarning && code <= LogLevelDebug {
		return nil
	}
	return fmt.Errorf("log level of: %d is out of range", code)
}

func (o *Options) resize(name string, r Resizer, n int64) {
	if r == nil {
		return
	}
	if err := r.Resize(int(n)); err != nil {
		o.hooks.Logger.Warn("failed to resize thread pool", "name", name, "value", n, "err", err)
	}
}

// applyLogLevel re-checks code before re-initializing logging. On failure the stored
// value and the active logging level disagree until the next successful write.
func (o *Options) applyLogLevel(code int) {
	if err := ValidateLogLevel(code); err != nil {
		o.hooks.Logger.Warn("invalid value provided to enum", "name", LogLevelName, "value", code, "err", err)
		return
	}
	if o.hooks.InitLogging == nil {
		return
	}
	level := logLevelNames[code]
	if err := o.hooks.InitLogging(level); err != nil {
		o.hooks.Logger.Warn("failed to initialize log with new value", "name", LogLevelName, "value", level, "err", err)
	}
}
