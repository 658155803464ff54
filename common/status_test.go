package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusRecordCycle(t *testing.T) {
	var status Status
	assert.False(t, status.Snapshot().HasCycle)

	now := time.Now()
	status.RecordCycle(CycleEntry{Time: now, Reachable: true, Error: "login failed"})
	status.RecordCycle(CycleEntry{Time: now, Reachable: true, LoggedIn: true, Address: KnownAddress("10.0.0.2", now), Restart: true, Rebooted: true})
	status.RecordCycle(CycleEntry{Time: now, Reachable: false})

	snapshot := status.Snapshot()
	assert.True(t, snapshot.HasCycle)
	assert.Equal(t, uint64(3), snapshot.CycleCount)
	assert.Equal(t, uint64(1), snapshot.FailureCount)
	assert.Equal(t, uint64(1), snapshot.LoginFailures)
	assert.Equal(t, uint64(1), snapshot.RebootCount)
	assert.False(t, snapshot.LastCycle.Reachable)
}

func TestAddressRecordString(t *testing.T) {
	assert.Equal(t, "unknown", UnknownAddress(time.Now()).String())
	assert.Equal(t, "203.0.113.7", KnownAddress("203.0.113.7", time.Now()).String())
}
