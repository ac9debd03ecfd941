// internal/config/config.go
package config

type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
}

type MonitorConfig struct {
	LogLevel string         `yaml:"log_level"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Devices  []DeviceConfig `yaml:"devices"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID        string         `yaml:"id"`
	Transport string         `yaml:"transport"` // ble | serial
	Address   string         `yaml:"address"`   // ble only
	Serial    SerialConfig   `yaml:"serial"`    // serial only
	TimeoutMs int            `yaml:"timeout_ms"`
	Poll      PollConfig     `yaml:"poll"`
	Battery   BatteryConfig  `yaml:"battery"`
	Targets   []TargetConfig `yaml:"targets"`
}

// ---- TRANSPORT ----

const (
	TransportBLE    = "ble"
	TransportSerial = "serial"
)

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ---- BATTERY ----

type BatteryConfig struct {
	Type       string   `yaml:"type"` // preset key or "custom"
	VoltageMin *float64 `yaml:"voltage_min"`
	VoltageMax *float64 `yaml:"voltage_max"`
}

// ---- TARGET ----

// TargetConfig is one Modbus register memory receiving the device block.
type TargetConfig struct {
	Endpoint string `yaml:"endpoint"`
	UnitID   uint8  `yaml:"unit_id"`
	BaseSlot uint16 `yaml:"base_slot"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- DEFAULTS / LIMITS ----

const (
	DefaultTimeoutMs  = 10_000
	DefaultIntervalMs = 600_000
	MinIntervalMs     = 60_000
	MaxIntervalMs     = 3_600_000
	DefaultLogLevel   = "info"
)
