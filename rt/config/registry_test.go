package config

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyValidation(t *testing.T) {
	reg := New()

	for _, name := range []string{"", "a/b", "a b", "a$"} {
		if _, err := NewBooleanBuilder(name, false).Build(reg); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("name %q: expected ErrInvalidKey, got %v", name, err)
		}
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := New()
	if _, err := NewBooleanBuilder("b", false).Build(reg); err != nil {
		t.Fatal(err)
	}
	_, err := NewNumberBuilder("b", 1, 0, 2).Build(reg)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	var dup *DuplicateRegistrationError
	if !errors.As(err, &dup) || dup.Name != "b" {
		t.Fatalf("expected DuplicateRegistrationError for b, got %v", err)
	}
	if got := reg.Len(); got != 1 {
		t.Fatalf("expected 1 parameter, got %d", got)
	}
}

func TestMustBuildPanicsOnDuplicate(t *testing.T) {
	reg := New()
	NewBooleanBuilder("b", false).MustBuild(reg)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewBooleanBuilder("b", false).MustBuild(reg)
}

func TestBuildInvalidConfig(t *testing.T) {
	reg := New()
	cases := []struct {
		name  string
		build func() error
	}{
		{"min>max", func() error { _, err := NewNumberBuilder("n1", 5, 10, 1).Build(reg); return err }},
		{"default below min", func() error { _, err := NewNumberBuilder("n2", 0, 1, 10).Build(reg); return err }},
		{"default rejected", func() error {
			_, err := NewNumberBuilder("n3", 3, 0, 10).
				WithValidationCallback(func(v int64) error {
					if v%2 != 0 {
						return errors.New("odd")
					}
					return nil
				}).Build(reg)
			return err
		}},
		{"enum empty", func() error { _, err := NewEnumBuilder("e1", 0, nil, nil).Build(reg); return err }},
		{"enum length mismatch", func() error {
			_, err := NewEnumBuilder("e2", 0, []string{"a", "b"}, []int{0}).Build(reg)
			return err
		}},
		{"enum duplicate name", func() error {
			_, err := NewEnumBuilder("e3", 0, []string{"a", "A"}, []int{0, 1}).Build(reg)
			return err
		}},
		{"enum duplicate code", func() error {
			_, err := NewEnumBuilder("e4", 0, []string{"a", "b"}, []int{0, 0}).Build(reg)
			return err
		}},
		{"enum default not in codes", func() error {
			_, err := NewEnumBuilder("e5", 7, []string{"a", "b"}, []int{0, 1}).Build(reg)
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.build(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
	if got := reg.Len(); got != 0 {
		t.Fatalf("expected nothing registered, got %d", got)
	}
}

func TestZeroValueRegistryUsable(t *testing.T) {
	var reg Registry
	v, err := NewBooleanBuilder("b", false).Build(&reg)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetFromString("b", "on"); err != nil {
		t.Fatal(err)
	}
	if !v.Get() {
		t.Fatalf("expected true")
	}
}

func TestSetFromStringNotFound(t *testing.T) {
	reg := New()
	if err := reg.SetFromString("missing", "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNumberBounds(t *testing.T) {
	reg := New()
	n := NewNumberBuilder("n", 5, 1, 10).MustBuild(reg)

	cases := []struct {
		v  int64
		ok bool
	}{
		{math.MinInt64, false},
		{0, false},
		{1, true},
		{7, true},
		{10, true},
		{11, false},
		{math.MaxInt64, false},
	}
	for _, tc := range cases {
		before := n.Get()
		err := n.Set(tc.v)
		if tc.ok {
			if err != nil {
				t.Fatalf("Set(%d): %v", tc.v, err)
			}
			if got := n.Get(); got != tc.v {
				t.Fatalf("Set(%d): Get()=%d", tc.v, got)
			}
			continue
		}
		if !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Set(%d): expected ErrOutOfRange, got %v", tc.v, err)
		}
		var oor *OutOfRangeError
		if !errors.As(err, &oor) || oor.Value != tc.v || oor.Range != "[1, 10]" {
			t.Fatalf("Set(%d): unexpected error detail %#v", tc.v, oor)
		}
		if got := n.Get(); got != before {
			t.Fatalf("Set(%d) failed but value changed %d -> %d", tc.v, before, got)
		}
	}
}

func TestNumberSetFromStringInvalid(t *testing.T) {
	reg := New()
	n := NewNumberBuilder("n", 5, 1, 10).MustBuild(reg)
	if err := n.SetFromString("five"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if err := n.SetFromString(" 6 "); err != nil {
		t.Fatal(err)
	}
	if got := n.Get(); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}

func TestValidationCallbackRejects(t *testing.T) {
	reg := New()
	errOdd := errors.New("must be even")
	var calls atomic.Int64
	n := NewNumberBuilder("even", 2, 0, 100).
		WithValidationCallback(func(v int64) error {
			if v%2 != 0 {
				return errOdd
			}
			return nil
		}).
		WithModifyCallback(func(int64) { calls.Add(1) }).
		MustBuild(reg)

	err := n.Set(3)
	if !errors.Is(err, ErrInvalidArgument) || !errors.Is(err, errOdd) {
		t.Fatalf("expected ErrInvalidArgument wrapping validator error, got %v", err)
	}
	if got := n.Get(); got != 2 {
		t.Fatalf("expected value unchanged, got %d", got)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no modify callback, got %d", got)
	}
}

func TestEnumDomain(t *testing.T) {
	reg := New()
	names := []string{"warning", "notice", "verbose", "debug"}
	codes := []int{0, 1, 2, 3}
	e := NewEnumBuilder("log-level", 1, names, codes).MustBuild(reg)

	gotNames, gotCodes := e.Names(), e.Codes()
	if len(gotNames) != len(gotCodes) {
		t.Fatalf("names/codes length mismatch: %d vs %d", len(gotNames), len(gotCodes))
	}
	for i := range gotNames {
		if gotNames[i] != names[i] || gotCodes[i] != codes[i] {
			t.Fatalf("domain not index-aligned at %d: %s=%d", i, gotNames[i], gotCodes[i])
		}
	}

	for code := -2; code <= 5; code++ {
		err := e.Set(code)
		inDomain := code >= 0 && code <= 3
		if inDomain && err != nil {
			t.Fatalf("Set(%d): %v", code, err)
		}
		if !inDomain && !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Set(%d): expected ErrOutOfRange, got %v", code, err)
		}
	}
	if got := e.Get(); got != 3 {
		t.Fatalf("expected last valid code 3, got %d", got)
	}

	if err := reg.SetFromString("log-level", "NOTICE"); err != nil {
		t.Fatal(err)
	}
	if got := e.GetName(); got != "notice" {
		t.Fatalf("expected notice, got %q", got)
	}
	if err := reg.SetFromString("log-level", "2"); err != nil {
		t.Fatal(err)
	}
	if got := e.GetName(); got != "verbose" {
		t.Fatalf("expected verbose, got %q", got)
	}
	if err := reg.SetFromString("log-level", "loud"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestResetToDefaultIdempotent(t *testing.T) {
	reg := New()
	n := NewNumberBuilder("n", 5, 1, 10).MustBuild(reg)
	b := NewBooleanBuilder("b", false).WithFlags(FlagHidden).MustBuild(reg)
	reg.Serve()

	if err := n.Set(9); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := reg.ResetToDefault("n"); err != nil {
			t.Fatal(err)
		}
		if err := b.ResetToDefault(); err != nil {
			t.Fatalf("reset of hidden parameter: %v", err)
		}
		if got := n.Get(); got != 5 {
			t.Fatalf("round %d: expected 5, got %d", i, got)
		}
		if got := n.Source(); got != SourceDefault {
			t.Fatalf("round %d: expected SourceDefault, got %v", i, got)
		}
		if b.Get() {
			t.Fatalf("round %d: expected false", i)
		}
	}
}

func TestHiddenImmutableWhenServing(t *testing.T) {
	reg := New()
	b := NewBooleanBuilder("use-coordinator", false).WithFlags(FlagHidden).MustBuild(reg)

	if err := reg.SetFromString("use-coordinator", "true"); err != nil {
		t.Fatalf("start-up write: %v", err)
	}
	if it, _ := reg.Describe("use-coordinator"); !it.Mutable {
		t.Fatalf("expected mutable before Serve")
	}

	reg.Serve()

	err := reg.SetFromString("use-coordinator", "false")
	if !errors.Is(err, ErrImmutable) {
		t.Fatalf("expected ErrImmutable, got %v", err)
	}
	var ie *ImmutableParameterError
	if !errors.As(err, &ie) || ie.Name != "use-coordinator" {
		t.Fatalf("expected ImmutableParameterError, got %v", err)
	}
	if !b.Get() {
		t.Fatalf("expected value unchanged")
	}
	if it, _ := reg.Describe("use-coordinator"); it.Mutable {
		t.Fatalf("expected immutable after Serve")
	}
}

func TestGetNoAllocs(t *testing.T) {
	reg := New()
	n := NewNumberBuilder("n", 1, 0, 10).MustBuild(reg)
	b := NewBooleanBuilder("b", true).MustBuild(reg)
	e := NewEnumBuilder("e", 0, []string{"a", "b"}, []int{0, 1}).MustBuild(reg)

	if a := testing.AllocsPerRun(1000, func() { _ = n.Get() }); a != 0 {
		t.Fatalf("Number.Get allocs=%v", a)
	}
	if a := testing.AllocsPerRun(1000, func() { _ = b.Get() }); a != 0 {
		t.Fatalf("Boolean.Get allocs=%v", a)
	}
	if a := testing.AllocsPerRun(1000, func() { _ = e.Get() }); a != 0 {
		t.Fatalf("Enum.Get allocs=%v", a)
	}
}

func TestModifyCallbackSeesCommittedValue(t *testing.T) {
	reg := New()
	var n *Number
	var seen atomic.Int64
	n = NewNumberBuilder("n", 1, 0, 10).
		WithModifyCallback(func(v int64) {
			// Reading the parameter from its own callback must not deadlock.
			seen.Store(n.Get()*100 + v)
		}).
		MustBuild(reg)

	if err := n.Set(4); err != nil {
		t.Fatal(err)
	}
	if got := seen.Load(); got != 404 {
		t.Fatalf("expected callback to observe committed 4, got %d", got)
	}
}

func TestModifyCallbackOrderAndPanicRecovered(t *testing.T) {
	reg := New()
	var seq atomic.Int64
	b := NewBooleanBuilder("b", false).
		WithModifyCallback(func(bool) { seq.Store(seq.Load()*10 + 1) }).
		WithModifyCallback(func(bool) { panic("boom") }).
		WithModifyCallback(func(bool) { seq.Store(seq.Load()*10 + 3) }).
		MustBuild(reg)

	if err := b.Set(true); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if !b.Get() {
		t.Fatalf("expected committed value to survive callback panic")
	}
	if got := seq.Load(); got != 13 {
		t.Fatalf("expected callback order 1 then 3, got %d", got)
	}
}

func TestReentrantWriteRejected(t *testing.T) {
	reg := New()
	var n *Number
	var inner atomic.Value
	n = NewNumberBuilder("n", 1, 0, 10).
		WithModifyCallback(func(v int64) {
			if v == 2 {
				inner.Store(n.Set(3))
			}
		}).
		MustBuild(reg)

	if err := n.Set(2); err != nil {
		t.Fatal(err)
	}
	err, _ := inner.Load().(error)
	if !errors.Is(err, ErrReentrantWrite) {
		t.Fatalf("expected ErrReentrantWrite, got %v", err)
	}
	if got := n.Get(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestSlowCallbackDoesNotBlockReads(t *testing.T) {
	reg := New()
	release := make(chan struct{})
	entered := make(chan struct{})
	n := NewNumberBuilder("n", 1, 0, 10).
		WithModifyCallback(func(int64) {
			close(entered)
			<-release
		}).
		MustBuild(reg)

	done := make(chan error, 1)
	go func() { done <- n.Set(7) }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("callback did not start")
	}
	if got := n.Get(); got != 7 {
		t.Fatalf("expected committed 7 while callback runs, got %d", got)
	}
	if it, ok := reg.Describe("n"); !ok || it.Value != int64(7) {
		t.Fatalf("expected Describe to return 7, got %+v", it)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentReadersSeeCommittedValues(t *testing.T) {
	reg := New()
	n := NewNumberBuilder("n", 0, 0, math.MaxInt64).MustBuild(reg)
	valid := []int64{0, 0x0101010101010101, 0x7f7f7f7f7f7f7f7f, 0x00ff00ff00ff00ff}
	isValid := func(v int64) bool {
		for _, x := range valid {
			if v == x {
				return true
			}
		}
		return false
	}

	var stop atomic.Bool
	var bad atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				if v := n.Get(); !isValid(v) {
					bad.Store(v)
				}
			}
		}()
	}
	for i := 0; i < 2000; i++ {
		if err := n.Set(valid[i%len(valid)]); err != nil {
			t.Fatal(err)
		}
	}
	stop.Store(true)
	wg.Wait()
	if v := bad.Load(); v != 0 {
		t.Fatalf("observed value never committed: %#x", v)
	}
}

func TestMustAccessors(t *testing.T) {
	reg := New()
	NewNumberBuilder("n", 1, 0, 10).MustBuild(reg)
	NewBooleanBuilder("b", false).MustBuild(reg)

	if got := MustNumber(reg, "n").Get(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if MustBoolean(reg, "b").Get() {
		t.Fatalf("expected false")
	}

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}
	mustPanic("wrong variant", func() { MustEnum(reg, "n") })
	mustPanic("wrong variant", func() { MustNumber(reg, "b") })
	mustPanic("missing", func() { MustBoolean(reg, "missing") })
}

func TestSetAnyTypeMismatch(t *testing.T) {
	reg := New()
	n := NewNumberBuilder("n", 1, 0, 10).MustBuild(reg)
	e := NewEnumBuilder("e", 0, []string{"a", "b"}, []int{0, 1}).MustBuild(reg)

	if err := reg.Set("n", "3"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if err := reg.Set("n", 3); err != nil {
		t.Fatal(err)
	}
	if got := n.Get(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if err := reg.Set("e", "B"); err != nil {
		t.Fatal(err)
	}
	if got := e.Get(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if err := reg.Set("e", true); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestSnapshotOrderAndOverrides(t *testing.T) {
	reg := New()
	NewNumberBuilder("zeta", 1, 0, 10).MustBuild(reg)
	NewBooleanBuilder("alpha", false).MustBuild(reg)
	NewEnumBuilder("mid", 0, []string{"a", "b"}, []int{0, 1}).MustBuild(reg)

	snap := reg.Snapshot()
	want := []string{"zeta", "alpha", "mid"}
	if len(snap.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(snap.Items))
	}
	for i, it := range snap.Items {
		if it.Name != want[i] {
			t.Fatalf("item %d: expected %s, got %s", i, want[i], it.Name)
		}
	}
	if d := snap.Items[2].Constraints.Domain; len(d) != 2 || d[0] != "a=0" || d[1] != "b=1" {
		t.Fatalf("unexpected enum domain %v", d)
	}

	_ = reg.SetFromString("mid", "b")
	_ = reg.SetFromString("zeta", "4")
	bs, err := reg.ExportOverridesJSON()
	if err != nil {
		t.Fatal(err)
	}
	const wantJSON = `[{"name":"zeta","type":"number","value":"4"},{"name":"mid","type":"enum","value":"b"}]`
	if string(bs) != wantJSON {
		t.Fatalf("overrides=%s, want %s", bs, wantJSON)
	}
}

func TestBuildCopiesModifyCallbacks(t *testing.T) {
	var calls atomic.Int64
	count := func() { calls.Add(1) }

	nb := NewNumberBuilder("n", 1, 0, 10).WithModifyCallback(func(int64) { count() })
	bb := NewBooleanBuilder("b", false).WithModifyCallback(func(bool) { count() })
	eb := NewEnumBuilder("e", 0, []string{"low", "high"}, []int{0, 1}).WithModifyCallback(func(int) { count() })

	reg := New()
	n := nb.MustBuild(reg)
	b := bb.MustBuild(reg)
	e := eb.MustBuild(reg)

	// Callbacks added to a builder after Build must not reach the built parameter.
	nb.WithModifyCallback(func(int64) { t.Error("late number callback ran") })
	bb.WithModifyCallback(func(bool) { t.Error("late boolean callback ran") })
	eb.WithModifyCallback(func(int) { t.Error("late enum callback ran") })

	if err := n.Set(2); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(true); err != nil {
		t.Fatal(err)
	}
	if err := e.Set(1); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 callback runs, got %d", got)
	}
}
