package db

import (
	"context"
	"testing"
	"time"

	influxdb2write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"

	"dev.hon.one/argon/common"
)

func TestCyclePoint(t *testing.T) {
	now := time.Unix(1700000000, 0)
	entry := common.CycleEntry{
		Time:       now,
		Source:     "http://192.168.100.1",
		Duration:   1500 * time.Millisecond,
		Reachable:  true,
		LoggedIn:   true,
		Address:    common.KnownAddress("10.0.0.2", now),
		Restart:    true,
		Rebooted:   true,
		FinalState: "Rebooting",
	}

	line := influxdb2write.PointToLineProtocol(newCyclePoint(entry), time.Second)
	assert.Contains(t, line, "cycle,source=http://192.168.100.1 ")
	assert.Contains(t, line, `address="10.0.0.2"`)
	assert.Contains(t, line, "address_known=true")
	assert.Contains(t, line, "duration_seconds=1.5")
	assert.Contains(t, line, "rebooted=true")
	assert.Contains(t, line, "success=true")
	assert.Contains(t, line, " 1700000000")
}

func TestRebootPoint(t *testing.T) {
	entry := common.RebootEntry{
		Time:    time.Unix(1700000000, 0),
		Source:  "device",
		Address: "10.0.0.2",
		Success: false,
	}

	line := influxdb2write.PointToLineProtocol(newRebootPoint(entry), time.Second)
	assert.Contains(t, line, "reboot,source=device ")
	assert.Contains(t, line, "success=false")
}

func TestStoreWithoutClient(t *testing.T) {
	// Storage is optional, entries are dropped silently
	StoreCycleEntry(common.CycleEntry{Source: "device"})
	StoreRebootEntry(common.RebootEntry{Source: "device"})
	count, ok := FetchRecentRebootCount(context.Background())
	assert.False(t, ok)
	assert.Zero(t, count)
}
