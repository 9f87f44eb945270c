// Package pool provides a fixed-size worker pool with deterministic teardown.
//
// The Pool owns a fixed number of long-lived workers that pull jobs from a
// shared unbounded FIFO queue. Submit is fire-and-forget: it returns once the
// job is enqueued and offers no handle to the result. Close sends one
// shutdown signal per worker through the same queue, so every job enqueued
// before Close is drained before the workers exit, then waits for every
// worker in construction order.
//
// # Basic Usage
//
//	p := pool.New(4) // 4 workers
//	defer p.Close()
//
//	for i := 0; i < 100; i++ {
//	    p.Submit(func() {
//	        // do work
//	    })
//	}
//
// # Caller Obligations
//
// Jobs take no arguments and return nothing; any shared state a job touches
// must be protected by the caller. A job that never returns makes Close block
// forever. Submitting through a pool after Close has begun is a programmer
// error and panics, as does constructing a pool with fewer than one worker.
//
// # Failure Behavior
//
// A panic inside a job permanently terminates the worker that ran it. The
// pool does not restart or replace crashed workers; capacity shrinks by one
// for the remaining lifetime of the pool.
package pool
