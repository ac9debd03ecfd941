// internal/writer/writer_test.go
package writer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/battery-monitor/internal/config"
	"github.com/tamzrod/battery-monitor/internal/status"
)

// ---- fake endpoint client ----

type fakeEndpointClient struct {
	writes []writeCall
	fail   error
}

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.fail != nil {
		return f.fail
	}
	f.writes = append(f.writes, writeCall{
		unitID: unitID,
		addr:   addr,
		regs:   append([]uint16(nil), regs...),
	})
	return nil
}

func (f *fakeEndpointClient) last() writeCall {
	return f.writes[len(f.writes)-1]
}

func okSnapshot() status.Snapshot {
	return status.Snapshot{
		Health:        status.HealthOK,
		Voltage:       1262,
		Flags:         status.FlagBatteryOK,
		StateOfCharge: 92,
		Model:         "BK300",
	}
}

// ---- tests ----

func TestIdentityWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	plan := Plan{DeviceID: "van", Targets: []Target{{Endpoint: "ep1", UnitID: 1, BaseSlot: 2}}}
	w := New(plan, map[string]RegisterWriter{"ep1": cli})

	// ---- first write: FULL ASSERT ----
	require.NoError(t, w.WriteStatus(okSnapshot()))
	require.Len(t, cli.writes, 1)
	assert.Equal(t, uint8(1), cli.last().unitID)
	assert.Equal(t, uint16(2*status.SlotsPerDevice), cli.last().addr)
	assert.Equal(t, status.Encode(okSnapshot()), cli.last().regs)

	// ---- second write: INCREMENTAL ONLY ----
	next := okSnapshot()
	next.Voltage = 1250
	next.StateOfCharge = 88
	require.NoError(t, w.WriteStatus(next))

	require.Len(t, cli.writes, 3)
	assert.Equal(t, writeCall{unitID: 1, addr: 2*status.SlotsPerDevice + status.SlotVoltage, regs: []uint16{1250}}, cli.writes[1])
	assert.Equal(t, writeCall{unitID: 1, addr: 2*status.SlotsPerDevice + status.SlotStateOfCharge, regs: []uint16{88}}, cli.writes[2])

	// ---- unchanged: nothing written ----
	require.NoError(t, w.WriteStatus(next))
	assert.Len(t, cli.writes, 3)
}

func TestIdentityChangeReassertsFullBlock(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := New(Plan{Targets: []Target{{Endpoint: "ep1"}}}, map[string]RegisterWriter{"ep1": cli})

	require.NoError(t, w.WriteStatus(okSnapshot()))

	next := okSnapshot()
	next.FirmwareVersion = "V3.3"
	require.NoError(t, w.WriteStatus(next))

	require.Len(t, cli.writes, 2)
	assert.Len(t, cli.last().regs, status.SlotsPerDevice)
}

func TestFailureReassertsFullBlock(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := New(Plan{Targets: []Target{{Endpoint: "ep1"}}}, map[string]RegisterWriter{"ep1": cli})

	require.NoError(t, w.WriteStatus(okSnapshot()))

	cli.fail = errors.New("broken pipe")
	errSnap := okSnapshot()
	errSnap.Health = status.HealthError
	errSnap.LastErrorCode = 2
	require.Error(t, w.WriteStatus(errSnap))

	cli.fail = nil
	require.NoError(t, w.WriteStatus(errSnap))
	assert.Len(t, cli.last().regs, status.SlotsPerDevice)
	assert.Equal(t, status.HealthError, cli.last().regs[status.SlotHealthCode])
}

func TestSecondsInErrorResetOnRecovery(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := New(Plan{Targets: []Target{{Endpoint: "ep1"}}}, map[string]RegisterWriter{"ep1": cli})

	errSnap := okSnapshot()
	errSnap.Health = status.HealthError
	errSnap.LastErrorCode = 2
	errSnap.SecondsInError = 3
	require.NoError(t, w.WriteStatus(errSnap))

	require.NoError(t, w.WriteStatus(okSnapshot()))

	// health, last error, seconds: one register each
	require.Len(t, cli.writes, 4)
	assert.Equal(t, uint16(status.SlotSecondsInError), cli.last().addr)
	assert.Equal(t, []uint16{0}, cli.last().regs)
}

func TestFanOutContinuesPastFailingTarget(t *testing.T) {
	bad := &fakeEndpointClient{fail: errors.New("refused")}
	good := &fakeEndpointClient{}
	plan := Plan{Targets: []Target{
		{Endpoint: "bad"},
		{Endpoint: "good", UnitID: 3},
		{Endpoint: "missing"},
	}}
	w := New(plan, map[string]RegisterWriter{"bad": bad, "good": good})

	err := w.WriteStatus(okSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.Contains(t, err.Error(), "missing client for endpoint missing")
	assert.Len(t, good.writes, 1)
}

func TestNoTargets(t *testing.T) {
	w := New(Plan{DeviceID: "van"}, nil)
	assert.ErrorIs(t, w.WriteStatus(okSnapshot()), errNoTargets)
}

func TestBuildPlan(t *testing.T) {
	plan, err := BuildPlan(config.DeviceConfig{
		ID: "van",
		Targets: []config.TargetConfig{
			{Endpoint: "127.0.0.1:502", UnitID: 1, BaseSlot: 0},
			{Endpoint: "127.0.0.1:503", UnitID: 2, BaseSlot: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Plan{
		DeviceID: "van",
		Targets: []Target{
			{Endpoint: "127.0.0.1:502", UnitID: 1, BaseSlot: 0},
			{Endpoint: "127.0.0.1:503", UnitID: 2, BaseSlot: 4},
		},
	}, plan)

	_, err = BuildPlan(config.DeviceConfig{})
	assert.Error(t, err)
}
