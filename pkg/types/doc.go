/*
Package types holds the interfaces that sit across precachefs's package
boundaries, so internal/fuse and internal/health depend on a contract
rather than a concrete package.

	internal/fuse  ──uses──>  types.ManagerAPI  <──implements── internal/cache.Manager
	internal/fuse  ──uses──>  types.MetricsCollector  <──implements── internal/metrics.Collector
	                           types.HealthChecker  <──implements── internal/health.Checker

ManagerAPI is cache.Manager's public surface (Request/Lookup/ReadRange/
ReadThrough/Attr/ReadDir/SetRoot); internal/fuse never imports
internal/cache directly, so the prefetch core stays ignorant of FUSE.

MetricsCollector and HealthChecker are implemented by internal/metrics
and internal/health respectively. internal/fuse consumes MetricsCollector;
internal/adapter holds the concrete *health.Checker rather than the
HealthChecker interface. HealthStatus is the result type HealthChecker
reports.
*/
package types
