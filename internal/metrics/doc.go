// Package metrics provides request metrics collection and reporting.
//
// Metrics collects statistics about request latency, success/failure rates,
// and throughput (RPS). The httpd server and the load generator both feed
// it; the bench report and the admin API read it.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... handle request ...
//	m.RecordSuccess(time.Since(start))
//
//	fmt.Printf("Total: %d, RPS: %.2f, P99: %v\n",
//	    m.TotalRequests(), m.RPS(), m.P99Latency())
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	m := metrics.NewWithConfig(metrics.Config{
//	    MaxLatencySamples: 5000, // more samples for P99 accuracy
//	})
//
// # Thread Safety
//
// Counters are atomic; latency samples are guarded by a lock. All operations
// are safe for concurrent use.
package metrics
