// internal/status/constants.go
package status

// Device Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of logical slots per device.
const SlotsPerDevice = 25

// ---- SLOT INDICES ----

// SlotHealthCode holds the device health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the device has been in error.
const SlotSecondsInError = 2

// SlotVoltage holds the last voltage in centivolts.
const SlotVoltage = 3

// SlotFlags holds FlagBatteryOK and FlagCharging.
const SlotFlags = 4

// SlotStateOfCharge holds the state of charge in percent, or SoCUnknown.
const SlotStateOfCharge = 5

// LiveSlots is the number of leading slots that change between polls.
const LiveSlots = 6

// ---- RESERVED RANGE ----

// Slots 6-9 are reserved for future use.
const SlotReservedStart = 6
const SlotReservedEnd = 9

// ---- IDENTITY ----

// Identity strings sit at the END of the status block, one field after another.
const (
	SlotModelStart           = 10
	SlotHardwareVersionStart = 15
	SlotFirmwareVersionStart = 20
)

// IdentityFieldSlots is the number of slots per identity string.
const IdentityFieldSlots = 5

// IdentityFieldMaxChars is the maximum number of ASCII characters stored per identity string.
const IdentityFieldMaxChars = IdentityFieldSlots * 2

// ---- FLAGS ----

const (
	FlagBatteryOK uint16 = 1 << 0
	FlagCharging  uint16 = 1 << 1
)

// SoCUnknown marks a state of charge that could not be derived.
const SoCUnknown uint16 = 0xFFFF

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale represents a stale data state.
const HealthStale uint16 = 3
