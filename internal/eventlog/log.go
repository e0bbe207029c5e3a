// Package eventlog implements the bounded, append-only event log at the
// center of the observer. Records are evicted FIFO once capacity is reached,
// so the log always holds the most recent window of activity.
package eventlog

import (
	"sync"
)

// DefaultCapacity is the number of records retained in memory.
const DefaultCapacity = 200

// Log is a bounded ring of records. Appends evict the oldest entries once
// the capacity is exceeded; insertion order is preserved.
type Log struct {
	mu sync.RWMutex

	records  []Record
	capacity int
}

// New creates a log with the given capacity. Non-positive values fall back
// to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		records:  make([]Record, 0, capacity),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of records the log retains.
func (l *Log) Capacity() int {
	return l.capacity
}

// Append adds a record to the end of the log, evicting from the front
// until the length is back within capacity.
func (l *Log) Append(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	if len(l.records) > l.capacity {
		overflow := len(l.records) - l.capacity
		copy(l.records, l.records[overflow:])
		l.records = l.records[:l.capacity]
	}
}

// Recent returns the last n records in insertion order. It never returns
// more records than the log holds.
func (l *Log) Recent(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || len(l.records) == 0 {
		return nil
	}
	start := len(l.records) - n
	if start < 0 {
		start = 0
	}
	out := make([]Record, len(l.records)-start)
	copy(out, l.records[start:])
	return out
}

// All returns a copy of every record currently in the log.
func (l *Log) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Clear empties the log. Counter resets that must be atomic with the clear
// are handled by the owning engine under its own lock.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = l.records[:0]
}

// Restore replaces the log contents with previously persisted records,
// keeping only the most recent window if more are supplied than fit.
func (l *Log) Restore(records []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(records) > l.capacity {
		records = records[len(records)-l.capacity:]
	}
	l.records = l.records[:0]
	l.records = append(l.records, records...)
}
