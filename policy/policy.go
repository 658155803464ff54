// Package policy decides when a device should be rebooted.
package policy

import (
	"strings"

	"dev.hon.one/argon/common"
)

// CarrierNATPrefix - Textual prefix of WAN addresses handed out from the carrier's private range.
// Only the literal prefix is checked, other private ranges are not considered.
const CarrierNATPrefix = "10."

// ShouldRestart - If the observed WAN address means the device failed to get a public lease.
func ShouldRestart(address common.AddressRecord) bool {
	if !address.Known {
		return false
	}
	return strings.HasPrefix(address.Value, CarrierNATPrefix)
}
