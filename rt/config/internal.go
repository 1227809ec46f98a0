package config

import (
	"bytes"
	"runtime"
	"sync"
	"sync/atomic"
)

// gate serializes modify callbacks of a single parameter and remembers the owning
// goroutine so that a write issued from inside a callback can be rejected instead
// of deadlocking.
type gate struct {
	mu    sync.Mutex
	owner atomic.Uint64
}

func (g *gate) heldByCaller() bool {
	owner := g.owner.Load()
	if owner == 0 {
		return false
	}
	return owner == curGoroutineID()
}

func (g *gate) lock() error {
	gid := curGoroutineID()
	if g.mu.TryLock() {
		g.owner.Store(gid)
		return nil
	}
	owner := g.owner.Load()
	if gid != 0 && owner == gid {
		return ErrReentrantWrite
	}
	// Without a goroutine id we cannot prove the caller is not the owner.
	if gid == 0 && owner == 0 {
		return ErrReentrantWrite
	}
	g.mu.Lock()
	g.owner.Store(gid)
	return nil
}

func (g *gate) unlock() {
	g.owner.Store(0)
	g.mu.Unlock()
}

// curGoroutineID returns the current goroutine id by parsing runtime.Stack output.
//
// It returns 0 if parsing fails. Only used on the write path.
func curGoroutineID() uint64 {
	var buf [256]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// Format: "goroutine 123 [running]:\n"
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	var id uint64
	for i := len(prefix); i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
