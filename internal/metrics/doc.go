/*
Package metrics provides Prometheus-based metrics collection for
precachefs: operation latency/size, cache hit/miss rates, async reader
queue depth and hydration latency, predictor candidate counts, and
error classification.

# Usage

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Port:      8080,
		Path:      "/metrics",
		Namespace: "precachefs",
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := collector.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer collector.Stop(ctx)

# Recording

	start := time.Now()
	data, ok := manager.ReadRange(path, length, offset)
	collector.RecordOperation("read_range", time.Since(start), int64(len(data)), ok)

	if ok {
		collector.RecordCacheHit(path, int64(len(data)))
	} else {
		collector.RecordCacheMiss(path, 0)
	}

	collector.UpdateQueueDepth(len(manager.Status().PendingPaths))
	collector.RecordHydration(hydrationDuration, success)
	collector.RecordPredictorCandidates(len(candidates))

# Prometheus Metrics

Counters:
  - precachefs_operations_total{operation,status}
  - precachefs_cache_requests_total{type,source}
  - precachefs_errors_total{operation,type}
  - precachefs_predictor_candidates_total

Histograms:
  - precachefs_operation_duration_seconds{operation}
  - precachefs_operation_size_bytes{operation}
  - precachefs_hydration_duration_seconds{status}

Gauges:
  - precachefs_cache_size_bytes{level}
  - precachefs_active_connections
  - precachefs_reader_queue_depth

# HTTP Endpoints

/metrics - Prometheus-formatted metrics (for scraping)

/health - health check, returns {"status":"healthy","service":"precachefs-metrics"}

/debug/metrics - human-readable JSON summary of tracked operations

/debug/operations - tabular operations summary

# Configuration

	config := &metrics.Config{
		Enabled:        true,
		Port:           8080,
		Path:           "/metrics",
		Namespace:      "precachefs",
		UpdateInterval: 30 * time.Second,
	}

# Thread Safety

All Collector methods are safe for concurrent use.
*/
package metrics
