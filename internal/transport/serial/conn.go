// internal/transport/serial/conn.go
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/loopholelabs/logging/types"
	tarm "github.com/tarm/serial"

	"github.com/tamzrod/battery-monitor/internal/protocol"
)

// Config is the minimal UART config.
type Config struct {
	Port string
	Baud int
}

// DefaultBaud matches the monitor's UART bridge.
const DefaultBaud = 9600

// readTimeout bounds each read so Close is observed promptly.
const readTimeout = 100 * time.Millisecond

// Conn carries the packet protocol over a byte stream.
// It implements session.Transport; inbound bytes are split into frames
// and each frame is delivered as one notification.
type Conn struct {
	rwc io.ReadWriteCloser
	log types.Logger

	// tolerateEOF is set for ports with a read timeout, where an empty
	// read surfaces as io.EOF.
	tolerateEOF bool

	wmu        sync.Mutex
	subscribed bool

	closeOnce sync.Once
	done      chan struct{}
}

// Open opens the serial port. Eg "/dev/ttyUSB0".
func Open(cfg Config, log types.Logger) (*Conn, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial: port required")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}

	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: readTimeout,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Port, err)
	}

	c := NewConn(port, log)
	c.tolerateEOF = true
	return c, nil
}

// NewConn wraps an already open stream.
func NewConn(rwc io.ReadWriteCloser, log types.Logger) *Conn {
	return &Conn{
		rwc:  rwc,
		log:  log,
		done: make(chan struct{}),
	}
}

// Write sends p in full.
func (c *Conn) Write(p []byte) error {
	select {
	case <-c.done:
		return errors.New("serial: connection closed")
	default:
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	for len(p) > 0 {
		n, err := c.rwc.Write(p)
		if err != nil {
			return fmt.Errorf("serial: write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// Subscribe starts the reader. Only one subscriber is supported.
func (c *Conn) Subscribe(fn func([]byte)) error {
	if fn == nil {
		return errors.New("serial: nil subscriber")
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.subscribed {
		return errors.New("serial: already subscribed")
	}
	c.subscribed = true

	go c.readLoop(fn)
	return nil
}

// Done is closed once the stream ends or Close is called.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close closes the underlying stream.
func (c *Conn) Close() error {
	c.markDone()
	return c.rwc.Close()
}

func (c *Conn) markDone() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) readLoop(fn func([]byte)) {
	defer c.markDone()

	var pending []byte
	chunk := make([]byte, protocol.MaxPacketLen)

	for {
		n, err := c.rwc.Read(chunk)
		if n > 0 {
			pending = deliver(append(pending, chunk[:n]...), fn)
		}
		if err == nil {
			continue
		}

		select {
		case <-c.done:
			return
		default:
		}
		if errors.Is(err, io.EOF) && c.tolerateEOF {
			continue
		}
		if c.log != nil {
			c.log.Debug().Err(err).Msg("serial reader stopped")
		}
		return
	}
}

// deliver hands every complete frame in buf to fn and returns the remainder.
func deliver(buf []byte, fn func([]byte)) []byte {
	for len(buf) > 0 {
		adv, tok, _ := protocol.SplitFrames(buf, false)
		if adv == 0 {
			break
		}
		if tok != nil {
			frame := make([]byte, len(tok))
			copy(frame, tok)
			fn(frame)
		}
		buf = buf[adv:]
	}

	rest := make([]byte, len(buf))
	copy(rest, buf)
	return rest
}
