package common

import "time"

// AddressRecord - Last observed external address of the monitored interface.
type AddressRecord struct {
	Value      string
	Known      bool // False means unknown or unassigned
	ObservedAt time.Time
}

// UnknownAddress - Record for an absent or unassigned address.
func UnknownAddress(observedAt time.Time) AddressRecord {
	return AddressRecord{ObservedAt: observedAt}
}

// KnownAddress - Record for an observed address.
func KnownAddress(value string, observedAt time.Time) AddressRecord {
	return AddressRecord{Value: value, Known: true, ObservedAt: observedAt}
}

func (record AddressRecord) String() string {
	if !record.Known {
		return "unknown"
	}
	return record.Value
}

// CycleEntry - Outcome of one watch cycle.
type CycleEntry struct {
	Time       time.Time
	Source     string
	Duration   time.Duration
	Reachable  bool
	LoggedIn   bool
	Address    AddressRecord
	Restart    bool
	Rebooted   bool
	FinalState string
	Error      string // Empty if the cycle completed without an absorbed failure
}

// Success - If the cycle completed without an absorbed failure.
func (entry CycleEntry) Success() bool {
	return entry.Error == ""
}

// RebootEntry - A reboot issued to a device.
type RebootEntry struct {
	Time    time.Time
	Source  string
	Address string
	Success bool
}
