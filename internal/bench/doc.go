// Package bench runs self-contained benchmarks of the pool-backed server.
//
// An Engine boots an httpd.Server on a loopback port, points a loadgen
// Generator at it for a configured duration, shuts both down (joining every
// pool worker before metrics are read) and renders a Result report.
//
//	cfg, _ := bench.GetPreset("quick")
//	engine := bench.New(cfg)
//	result, err := engine.Run(ctx)
//	if err == nil {
//	    fmt.Println(result.Report())
//	}
//
// Presets: quick, basic, slowpath, stress.
package bench
