package common

import "sync"

// StatusSnapshot - Copy of the status at some point in time.
type StatusSnapshot struct {
	LastCycle     CycleEntry
	HasCycle      bool
	CycleCount    uint64
	FailureCount  uint64
	LoginFailures uint64
	RebootCount   uint64
}

// Status - Cycle outcomes written by the watcher and read by the HTTP server.
type Status struct {
	mutex    sync.RWMutex
	snapshot StatusSnapshot
}

// RecordCycle - Fold a finished cycle into the status.
func (status *Status) RecordCycle(entry CycleEntry) {
	status.mutex.Lock()
	defer status.mutex.Unlock()

	status.snapshot.LastCycle = entry
	status.snapshot.HasCycle = true
	status.snapshot.CycleCount++
	if !entry.Success() {
		status.snapshot.FailureCount++
	}
	if entry.Reachable && !entry.LoggedIn {
		status.snapshot.LoginFailures++
	}
	if entry.Rebooted {
		status.snapshot.RebootCount++
	}
}

// Snapshot - Get a copy of the current status.
func (status *Status) Snapshot() StatusSnapshot {
	status.mutex.RLock()
	defer status.mutex.RUnlock()
	return status.snapshot
}
