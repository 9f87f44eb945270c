// Package pi approximates π with the worker pool.
//
// The integral of 4/(1+x²) over [0,1] equals π. Calculate splits the
// interval into equal-width midpoint samples, submits one job per sample,
// and accumulates the partial contributions into a mutex-guarded sum.
// The pool is closed before the sum is read, so the result is complete.
//
//	pi := pi.Calculate(8, 1_000_000)
//
// Accuracy depends only on the iteration count, not on the worker count.
package pi
