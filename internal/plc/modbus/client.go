// internal/plc/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// Client drives two coils on one Modbus TCP slave.
// It serializes requests because the handler is not safe for concurrent use.
type Client struct {
	cfg Config

	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Coils    [2]uint16 // channel 0, channel 1
	Timeout  time.Duration
}

// New creates an unconnected client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("plc modbus: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// Connect dials the slave and reads both coils once to make sure they are
// addressable.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h := modbus.NewTCPClientHandler(c.cfg.Endpoint)
	h.Timeout = deadline(ctx, c.cfg.Timeout)
	h.SlaveId = c.cfg.UnitID

	if err := h.Connect(); err != nil {
		return fmt.Errorf("plc modbus: dial %s: %w", c.cfg.Endpoint, err)
	}
	cli := modbus.NewClient(h)

	for i, coil := range c.cfg.Coils {
		if _, err := cli.ReadCoils(coil, 1); err != nil {
			_ = h.Close()
			return fmt.Errorf("plc modbus: resolve coil[%d]=%d: %w", i, coil, err)
		}
	}

	c.handler = h
	c.client = cli
	return nil
}

// Close closes the TCP connection.
func (c *Client) Close(ctx context.Context) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler == nil {
		return nil
	}
	err := c.handler.Close()
	c.handler = nil
	c.client = nil
	return err
}

// Write sets or clears one coil.
func (c *Client) Write(ctx context.Context, channel int, value bool) error {
	if channel < 0 || channel >= len(c.cfg.Coils) {
		return fmt.Errorf("plc modbus: channel %d out of range", channel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return errors.New("plc modbus: not connected")
	}
	c.handler.Timeout = deadline(ctx, c.cfg.Timeout)

	v := coilOff
	if value {
		v = coilOn
	}
	_, err := c.client.WriteSingleCoil(c.cfg.Coils[channel], v)
	return err
}

// Probe reads the first coil.
func (c *Client) Probe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return errors.New("plc modbus: not connected")
	}
	c.handler.Timeout = deadline(ctx, c.cfg.Timeout)

	_, err := c.client.ReadCoils(c.cfg.Coils[0], 1)
	return err
}

// deadline returns the shorter of the configured timeout and the time left on ctx.
func deadline(ctx context.Context, timeout time.Duration) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left > 0 && left < timeout {
			return left
		}
	}
	return timeout
}
