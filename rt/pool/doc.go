// Package pool provides a fixed-queue worker pool whose worker count can be changed
// while it runs.
//
// # Lifecycle
//
//	p, _ := pool.New("readers", 8)
//	_ = p.Submit(ctx, func(ctx context.Context) { ... })
//	_ = p.Resize(16)
//	defer p.Shutdown(context.Background())
//
// # Resize
//
// Resize is safe on a running pool and never drops queued work:
//   - Growing starts the missing workers immediately.
//   - Shrinking asks surplus workers to exit. A busy worker finishes its current task
//     first; tasks still queued are picked up by the remaining workers.
//
// Size reports the target; Workers reports how many workers are currently alive,
// which converges to Size.
//
// # Panics
//
// A panicking task is recovered and reported through the pool logger; the worker keeps
// running.
//
// # Shutdown
//
// Shutdown stops accepting tasks, lets workers drain the queue and waits for them.
// If ctx ends first, the context passed to running tasks is canceled and Shutdown
// returns ctx.Err().
package pool
