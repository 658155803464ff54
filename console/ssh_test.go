package console

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev.hon.one/argon/common"
)

var briefAddressOutput = []string{
	"lo               UNKNOWN        127.0.0.1/8 ::1/128 ",
	"eth0             UP             192.168.1.1/24 fe80::5054:ff:fe12:3456/64 ",
	"eth1             DOWN           ",
	"eth1.200@eth1    UP             fe80::5054:ff:fe12:3457/64 ",
	"pppoe0           UNKNOWN        100.70.12.34 peer 10.0.0.1/32 ",
	"wg0              UNKNOWN        10.10.1.1/32 ",
	"",
}

func TestParseBriefAddresses(t *testing.T) {
	rows := parseBriefAddresses(briefAddressOutput)
	assert.Equal(t, []StatusRow{
		{Label: "lo", Address: NoAddressSentinel},
		{Label: "eth0", Address: "192.168.1.1"},
		{Label: "eth1.200", Address: NoAddressSentinel},
		{Label: "pppoe0", Address: "100.70.12.34"},
		{Label: "wg0", Address: "10.10.1.1"},
	}, rows)
}

func TestFindAddressInBriefAddresses(t *testing.T) {
	rows := parseBriefAddresses(briefAddressOutput)
	testCases := []struct {
		label         string
		expected      string
		expectedFound bool
	}{
		{"pppoe0", "100.70.12.34", true},
		{"wg0", "10.10.1.1", true},
		{"eth1.200", "", false},
		{"eth1", "", false}, // Down
		{"eth9", "", false},
	}
	for _, testCase := range testCases {
		address, found := FindAddress(rows, testCase.label)
		assert.Equal(t, testCase.expectedFound, found, testCase.label)
		assert.Equal(t, testCase.expected, address, testCase.label)
	}
}

func TestFindAddressLastRowWins(t *testing.T) {
	rows := []StatusRow{
		{Label: fakeWANLabel, Address: "203.0.113.7"},
		{Label: "1_TR069_R_VID_100", Address: "10.254.1.9"},
		{Label: fakeWANLabel, Address: "10.0.0.2"},
	}
	address, found := FindAddress(rows, fakeWANLabel)
	assert.True(t, found)
	assert.Equal(t, "10.0.0.2", address)

	rows = append(rows, StatusRow{Label: fakeWANLabel, Address: NoAddressSentinel})
	_, found = FindAddress(rows, fakeWANLabel)
	assert.False(t, found)
}

func TestNewSSHConsole(t *testing.T) {
	device := common.DefaultConfig().Device
	device.ConnectionType = common.ConnectionTypeSSH

	device.Address = "ssh://192.0.2.1"
	console, err := NewSSHConsole(device, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:22", console.address)
	assert.Equal(t, LoggedOut, console.State())
	assert.NoError(t, console.Logout(context.Background()))
	assert.ErrorIs(t, console.Reboot(context.Background()), ErrNotLoggedIn)
	_, _, err = console.ReadStatus(context.Background(), "pppoe0")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	device.Address = "ssh://192.0.2.1:2222"
	console, err = NewSSHConsole(device, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:2222", console.address)

	device.Address = "http://192.0.2.1"
	_, err = NewSSHConsole(device, time.Second)
	assert.Error(t, err)

	device.Address = "ssh://192.0.2.1"
	device.Credential.PrivateKeyPath = filepath.Join(t.TempDir(), "missing")
	_, err = NewSSHConsole(device, time.Second)
	assert.Error(t, err)
}

func TestNewConsole(t *testing.T) {
	device := common.DefaultConfig().Device
	deviceConsole, err := New(device, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &WebConsole{}, deviceConsole)

	device.ConnectionType = common.ConnectionTypeSSH
	device.Address = "ssh://192.0.2.1"
	deviceConsole, err = New(device, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &SSHConsole{}, deviceConsole)

	device.ConnectionType = "telnet"
	_, err = New(device, time.Second)
	assert.Error(t, err)
}

func TestStatusRowAddressValue(t *testing.T) {
	address, ok := StatusRow{Label: "x", Address: "--"}.AddressValue()
	assert.False(t, ok)
	assert.Empty(t, address)

	address, ok = StatusRow{Label: "x", Address: "203.0.113.7"}.AddressValue()
	assert.True(t, ok)
	assert.Equal(t, "203.0.113.7", address)
}
