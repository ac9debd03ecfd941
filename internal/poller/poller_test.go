// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/battery-monitor/internal/config"
	"github.com/tamzrod/battery-monitor/internal/protocol"
	"github.com/tamzrod/battery-monitor/internal/session"
)

type fakeClient struct {
	mu       sync.Mutex
	reading  protocol.StatusReading
	identity *protocol.DeviceIdentity
	err      error
	polls    int
	closed   bool
}

func (f *fakeClient) PollStatus(context.Context) (protocol.StatusReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.reading, f.err
}

func (f *fakeClient) Identity() (protocol.DeviceIdentity, bool) {
	if f.identity == nil {
		return protocol.DeviceIdentity{}, false
	}
	return *f.identity, true
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

var testCfg = Config{DeviceID: "van", Interval: time.Hour}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Interval: time.Second}, &fakeClient{}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{DeviceID: "van"}, &fakeClient{}, nil, nil)
	assert.Error(t, err)

	_, err = New(testCfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestPollOnce_Success(t *testing.T) {
	cli := &fakeClient{
		reading:  protocol.StatusReading{Voltage: 12.62, BatteryOK: true},
		identity: &protocol.DeviceIdentity{Model: "BK300"},
	}
	p, err := New(testCfg, cli, nil, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, "van", res.DeviceID)
	assert.Equal(t, 12.62, res.Reading.Voltage)
	assert.True(t, res.HasIdentity)
	assert.Equal(t, "BK300", res.Identity.Model)
	assert.False(t, res.At.IsZero())
}

func TestPollOnce_FailureKeepsClient(t *testing.T) {
	cli := &fakeClient{reading: protocol.StatusReading{Voltage: 12}, err: session.ErrResponseTimeout}
	p, err := New(testCfg, cli, nil, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	assert.ErrorIs(t, res.Err, session.ErrResponseTimeout)
	assert.Zero(t, res.Reading.Voltage)
	assert.False(t, cli.closed)
}

func TestPollOnce_TransportDeathRedials(t *testing.T) {
	dead := &fakeClient{err: fmt.Errorf("%w: connection closed", session.ErrTransportUnavailable)}
	fresh := &fakeClient{reading: protocol.StatusReading{Voltage: 13.1}}

	dials := 0
	factory := func(context.Context) (Client, error) {
		dials++
		return fresh, nil
	}

	p, err := New(testCfg, dead, factory, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	assert.ErrorIs(t, res.Err, session.ErrTransportUnavailable)
	assert.True(t, dead.closed)
	assert.Zero(t, dials)

	res = p.PollOnce(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, dials)
	assert.Equal(t, 13.1, res.Reading.Voltage)
}

func TestPollOnce_RepeatedTimeoutsRecycleClient(t *testing.T) {
	wedged := &fakeClient{err: fmt.Errorf("%w: status after 10s", session.ErrResponseTimeout)}
	fresh := &fakeClient{reading: protocol.StatusReading{Voltage: 12.7}}

	dials := 0
	factory := func(context.Context) (Client, error) {
		dials++
		return fresh, nil
	}

	p, err := New(testCfg, wedged, factory, nil)
	require.NoError(t, err)

	for i := 1; i < MaxTimeouts; i++ {
		res := p.PollOnce(context.Background())
		assert.ErrorIs(t, res.Err, session.ErrResponseTimeout)
		assert.False(t, wedged.closed, "closed after %d timeouts", i)
	}

	res := p.PollOnce(context.Background())
	assert.ErrorIs(t, res.Err, session.ErrResponseTimeout)
	assert.True(t, wedged.closed)
	assert.Zero(t, dials)

	res = p.PollOnce(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, dials)
	assert.Equal(t, 12.7, res.Reading.Voltage)
	assert.Equal(t, MaxTimeouts, wedged.polls)
}

func TestPollOnce_TimeoutCountResetsOnSuccess(t *testing.T) {
	cli := &fakeClient{}
	p, err := New(testCfg, cli, nil, nil)
	require.NoError(t, err)

	for round := 0; round < 3; round++ {
		cli.err = session.ErrResponseTimeout
		for i := 1; i < MaxTimeouts; i++ {
			p.PollOnce(context.Background())
		}
		cli.err = nil
		require.NoError(t, p.PollOnce(context.Background()).Err)
	}
	assert.False(t, cli.closed)

	// an invalid response also breaks the run
	cli.err = session.ErrResponseTimeout
	for i := 1; i < MaxTimeouts; i++ {
		p.PollOnce(context.Background())
	}
	cli.err = session.ErrInvalidResponse
	p.PollOnce(context.Background())
	cli.err = session.ErrResponseTimeout
	p.PollOnce(context.Background())
	assert.False(t, cli.closed)
}

func TestPollOnce_DialFailure(t *testing.T) {
	factory := func(context.Context) (Client, error) {
		return nil, errors.New("ble: device not found")
	}
	p, err := New(testCfg, nil, factory, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	assert.ErrorIs(t, res.Err, session.ErrTransportUnavailable)
	assert.Contains(t, res.Err.Error(), "device not found")
}

func TestPollOnce_DialCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factory := func(ctx context.Context) (Client, error) {
		return nil, ctx.Err()
	}
	p, err := New(testCfg, nil, factory, nil)
	require.NoError(t, err)

	res := p.PollOnce(ctx)
	assert.ErrorIs(t, res.Err, session.ErrCancelled)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRunPollsImmediatelyAndClosesOnExit(t *testing.T) {
	cli := &fakeClient{reading: protocol.StatusReading{Voltage: 12.5}}
	p, err := New(testCfg, cli, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		assert.Equal(t, 12.5, res.Reading.Voltage)
	case <-time.After(time.Second):
		t.Fatal("no immediate poll")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, cli.closed)
}

func TestBuildUnknownTransport(t *testing.T) {
	_, err := Build(config.DeviceConfig{ID: "van", Transport: "zigbee", Poll: config.PollConfig{IntervalMs: 60_000}}, nil)
	assert.Error(t, err)
}

// ---- session client wiring ----

type pipeTransport struct {
	mu     sync.Mutex
	notify func([]byte)
	done   chan struct{}
	closed bool
}

func (p *pipeTransport) Write(pkt []byte) error {
	cmd, _ := protocol.CommandOf(pkt)
	var reply []byte
	switch cmd {
	case protocol.CmdDeviceInfo:
		reply = deviceInfoPacket
	case protocol.CmdStatusPoll:
		reply = statusPacket
	}
	p.mu.Lock()
	fn := p.notify
	p.mu.Unlock()
	go fn(reply)
	return nil
}

func (p *pipeTransport) Subscribe(fn func([]byte)) error {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
	return nil
}

func (p *pipeTransport) Done() <-chan struct{} { return p.done }

func (p *pipeTransport) Close() error {
	p.closed = true
	return nil
}

var statusPacket = []byte{0x24, 0x24, 0x0E, 0x00, 0x4B, 0x0B, 0xEE, 0x04, 0x02, 0x01, 0x08, 0xB4, 0x0D, 0x0A}

var deviceInfoPacket = func() []byte {
	payload := make([]byte, 44)
	copy(payload[0:], "BK300")
	copy(payload[10:], "V2.3")
	copy(payload[20:], "V3.2")
	return inboundFrame(protocol.RespDeviceInfo, payload)
}()

// inboundFrame builds a device-to-host frame.
func inboundFrame(cmd protocol.Command, payload []byte) []byte {
	pkt := protocol.Build(cmd, payload)
	pkt[0], pkt[1] = protocol.HeaderIn[0], protocol.HeaderIn[1]
	sum := protocol.Checksum(pkt[:len(pkt)-4])
	pkt[len(pkt)-4] = byte(sum)
	pkt[len(pkt)-3] = byte(sum >> 8)
	return pkt
}

func TestSessionClientPollsAndOwnsTransport(t *testing.T) {
	tr := &pipeTransport{done: make(chan struct{})}
	dial := func(context.Context) (transport, error) { return tr, nil }

	cli, err := newSessionClient(context.Background(), dial, session.Config{DeviceID: "van", Timeout: time.Second}, nil)
	require.NoError(t, err)

	reading, err := cli.PollStatus(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.62, reading.Voltage, 1e-9)

	id, ok := cli.Identity()
	require.True(t, ok)
	assert.Equal(t, "BK300", id.Model)

	require.NoError(t, cli.Close())
	assert.True(t, tr.closed)
}
