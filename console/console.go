// Package console drives the administration console of a device: login, status reading, reboot and logout.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dev.hon.one/argon/common"
)

// Console errors.
var (
	ErrUnexpectedPage       = errors.New("unexpected page")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrControlNotFound      = errors.New("control not found")
	ErrNotLoggedIn          = errors.New("not logged in")
)

// SessionState - Authentication state of a console session.
type SessionState int

// Session states.
const (
	LoggedOut SessionState = iota
	LoggedIn
)

func (state SessionState) String() string {
	switch state {
	case LoggedOut:
		return "LoggedOut"
	case LoggedIn:
		return "LoggedIn"
	default:
		return fmt.Sprintf("SessionState(%d)", int(state))
	}
}

// DeviceConsole - A remote administration session with one device.
type DeviceConsole interface {
	// Login - Authenticate. Fails with ErrUnexpectedPage or ErrAuthenticationFailed.
	Login(ctx context.Context) error
	// Logout - End the session. Succeeds without doing anything if already logged out.
	Logout(ctx context.Context) error
	// ReadStatus - Get the address of the given WAN interface. Found is false if the device shows no address,
	// or if the status table or row is missing.
	ReadStatus(ctx context.Context, wanLabel string) (address string, found bool, err error)
	// Reboot - Reboot the device. The session is invalid afterwards.
	Reboot(ctx context.Context) error
	// State - Current authentication state.
	State() SessionState
	// Close - Release the underlying resources.
	Close() error
}

// Screenshotter - Optionally implemented by consoles able to save what they currently show.
type Screenshotter interface {
	Screenshot(path string) error
}

// StatusRow - One row of the device's interface status table.
type StatusRow struct {
	Label   string
	Address string
}

// NoAddressSentinel - Shown by devices in place of an unassigned address.
const NoAddressSentinel = "--"

// AddressValue - The row's address, if one is assigned.
func (row StatusRow) AddressValue() (string, bool) {
	if row.Address == "" || row.Address == NoAddressSentinel {
		return "", false
	}
	return row.Address, true
}

// FindAddress - Address of the last row with the given label.
func FindAddress(rows []StatusRow, label string) (string, bool) {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Label == label {
			return rows[i].AddressValue()
		}
	}
	return "", false
}

// New - Create the console matching the device's connection type.
func New(device common.Device, timeout time.Duration) (DeviceConsole, error) {
	switch device.ConnectionType {
	case common.ConnectionTypeWeb:
		return NewWebConsole(device, timeout)
	case common.ConnectionTypeSSH:
		return NewSSHConsole(device, timeout)
	default:
		return nil, fmt.Errorf("unknown connection type: %v", device.ConnectionType)
	}
}
