package service

import "sync/atomic"

// Metrics tracks reconciliation activity.
type Metrics struct {
	Pulls        int64
	Pushes       int64
	PushFailures int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot.
func GetMetrics() Metrics {
	return Metrics{
		Pulls:        atomic.LoadInt64(&globalMetrics.Pulls),
		Pushes:       atomic.LoadInt64(&globalMetrics.Pushes),
		PushFailures: atomic.LoadInt64(&globalMetrics.PushFailures),
	}
}

// ResetMetrics resets all metrics (useful for testing).
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.Pulls, 0)
	atomic.StoreInt64(&globalMetrics.Pushes, 0)
	atomic.StoreInt64(&globalMetrics.PushFailures, 0)
}

func recordPull()        { atomic.AddInt64(&globalMetrics.Pulls, 1) }
func recordPush()        { atomic.AddInt64(&globalMetrics.Pushes, 1) }
func recordPushFailure() { atomic.AddInt64(&globalMetrics.PushFailures, 1) }
