package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dev.hon.one/argon/common"
)

func TestShouldRestart(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name     string
		address  common.AddressRecord
		expected bool
	}{
		{"carrier address", common.KnownAddress("10.0.0.5", now), true},
		{"carrier address short", common.KnownAddress("10.", now), true},
		{"lan address", common.KnownAddress("192.168.100.1", now), false},
		{"public address", common.KnownAddress("203.0.113.7", now), false},
		{"cgnat shared range", common.KnownAddress("100.64.0.1", now), false},
		{"other private range", common.KnownAddress("172.16.0.1", now), false},
		{"prefix without dot", common.KnownAddress("101.0.0.1", now), false},
		{"prefix in middle", common.KnownAddress("110.10.0.1", now), false},
		{"empty known", common.KnownAddress("", now), false},
		{"unknown", common.UnknownAddress(now), false},
		{"unknown with stale value", common.AddressRecord{Value: "10.0.0.2"}, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, ShouldRestart(testCase.address))
		})
	}
}
