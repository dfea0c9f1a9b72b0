package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for admin operations.
type Metrics struct {
	mu             sync.Mutex
	operationCount map[string]int64
	failureCount   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		operationCount: make(map[string]int64),
		failureCount:   make(map[string]int64),
	}
}

// RecordOperation increments counters for one dispatched operation.
func (m *Metrics) RecordOperation(operation string, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationCount[operation]++
	if failed {
		m.failureCount[operation]++
	}
}

// OperationCount returns the number of dispatches seen for an operation.
func (m *Metrics) OperationCount(operation string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operationCount[operation]
}

// FailureCount returns the number of failed dispatches for an operation.
func (m *Metrics) FailureCount(operation string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failureCount[operation]
}
