// internal/metrics/metrics.go
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/battery-monitor/internal/battery"
	"github.com/tamzrod/battery-monitor/internal/poller"
	"github.com/tamzrod/battery-monitor/internal/status"
)

type MetricsConfig struct {
	Namespace string
	SubPoll   string
	SubWriter string
}

func DefaultConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "bkmonitor",
		SubPoll:   "poll",
		SubWriter: "writer",
	}
}

// Metrics exports per-device readings and cycle outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg    prometheus.Registerer
	lock   sync.Mutex
	config *MetricsConfig

	// readings
	voltage       *prometheus.GaugeVec
	batteryOK     *prometheus.GaugeVec
	batteryLow    *prometheus.GaugeVec
	charging      *prometheus.GaugeVec
	stateOfCharge *prometheus.GaugeVec
	info          *prometheus.GaugeVec

	// poll
	pollResults    *prometheus.CounterVec
	health         *prometheus.GaugeVec
	secondsInError *prometheus.GaugeVec
	lastSuccess    *prometheus.GaugeVec

	// writer
	writeErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer, config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	met := &Metrics{
		config: config,
		reg:    reg,

		voltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "voltage_volts", Help: "Last battery voltage"}, []string{"device"}),
		batteryOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "battery_ok", Help: "Device battery-ok flag"}, []string{"device"}),
		batteryLow: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "battery_low", Help: "Battery problem reported by the device"}, []string{"device"}),
		charging: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "charging", Help: "Device charging flag"}, []string{"device"}),
		stateOfCharge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "state_of_charge_percent", Help: "Estimated state of charge"}, []string{"device"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "device_info", Help: "Device identity"}, []string{"device", "model", "hw_version", "fw_version"}),

		pollResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubPoll, Name: "results_total", Help: "Poll cycles by result code"}, []string{"device", "code"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Subsystem: config.SubPoll, Name: "health", Help: "Device health code"}, []string{"device"}),
		secondsInError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Subsystem: config.SubPoll, Name: "seconds_in_error", Help: "Seconds since the device left the ok state"}, []string{"device"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace, Subsystem: config.SubPoll, Name: "last_success_timestamp_seconds", Help: "Time of the last successful poll"}, []string{"device"}),

		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubWriter, Name: "errors_total", Help: "Failed register block writes"}, []string{"device"}),
	}

	if reg != nil {
		reg.MustRegister(
			met.voltage, met.batteryOK, met.batteryLow, met.charging, met.stateOfCharge, met.info,
			met.pollResults, met.health, met.secondsInError, met.lastSuccess,
			met.writeErrors,
		)
	}
	return met
}

// ObservePoll records the outcome of one poll cycle.
func (m *Metrics) ObservePoll(res poller.PollResult, soc int, socKnown bool) {
	if m == nil {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	code := strconv.Itoa(int(status.ErrorCode(res.Err)))
	m.pollResults.WithLabelValues(res.DeviceID, code).Inc()

	if res.HasIdentity {
		// One series per device; a firmware change replaces it.
		m.info.DeletePartialMatch(prometheus.Labels{"device": res.DeviceID})
		m.info.WithLabelValues(res.DeviceID, res.Identity.Model, res.Identity.HardwareVersion, res.Identity.FirmwareVersion).Set(1)
	}

	if res.Err != nil {
		return
	}

	m.voltage.WithLabelValues(res.DeviceID).Set(res.Reading.Voltage)
	m.batteryOK.WithLabelValues(res.DeviceID).Set(boolGauge(res.Reading.BatteryOK))
	m.batteryLow.WithLabelValues(res.DeviceID).Set(boolGauge(battery.Low(res.Reading.BatteryOK)))
	m.charging.WithLabelValues(res.DeviceID).Set(boolGauge(res.Reading.Charging))
	if socKnown {
		m.stateOfCharge.WithLabelValues(res.DeviceID).Set(float64(soc))
	} else {
		m.stateOfCharge.DeleteLabelValues(res.DeviceID)
	}
	m.lastSuccess.WithLabelValues(res.DeviceID).Set(float64(res.At.Unix()))
}

// ObserveStatus records the health part of a snapshot.
func (m *Metrics) ObserveStatus(deviceID string, s status.Snapshot) {
	if m == nil {
		return
	}
	m.health.WithLabelValues(deviceID).Set(float64(s.Health))
	m.secondsInError.WithLabelValues(deviceID).Set(float64(s.SecondsInError))
}

// ObserveWriteError counts a failed block write.
func (m *Metrics) ObserveWriteError(deviceID string) {
	if m == nil {
		return
	}
	m.writeErrors.WithLabelValues(deviceID).Inc()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
