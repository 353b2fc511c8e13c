package remote

import (
	"sync/atomic"
	"time"
)

// Metrics tracks store call counts and latency.
type Metrics struct {
	StoreCalls   int64
	StoreErrors  int64
	StoreLatency int64 // total latency in nanoseconds
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot.
func GetMetrics() Metrics {
	return Metrics{
		StoreCalls:   atomic.LoadInt64(&globalMetrics.StoreCalls),
		StoreErrors:  atomic.LoadInt64(&globalMetrics.StoreErrors),
		StoreLatency: atomic.LoadInt64(&globalMetrics.StoreLatency),
	}
}

// ResetMetrics resets all metrics (useful for testing).
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.StoreCalls, 0)
	atomic.StoreInt64(&globalMetrics.StoreErrors, 0)
	atomic.StoreInt64(&globalMetrics.StoreLatency, 0)
}

func recordStoreCall(duration time.Duration, err error) {
	atomic.AddInt64(&globalMetrics.StoreCalls, 1)
	atomic.AddInt64(&globalMetrics.StoreLatency, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&globalMetrics.StoreErrors, 1)
	}
}
