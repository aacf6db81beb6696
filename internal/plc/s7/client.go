// internal/plc/s7/client.go
package s7

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robinson/gos7"
)

// Client drives two bits of one data-block byte on an S7 PLC.
// Writes are read-modify-write of the whole byte, serialized by mu so the
// two channels never overwrite each other.
type Client struct {
	cfg Config

	mu      sync.Mutex
	handler *gos7.TCPClientHandler
	client  gos7.Client
}

// Config is the S7 addressing: rack/slot, data block, byte offset and the
// bit offset of each channel inside that byte.
type Config struct {
	Endpoint string
	Rack     int
	Slot     int
	DB       int
	Byte     int
	Bits     [2]uint8
	Timeout  time.Duration
}

// New creates an unconnected client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("plc s7: endpoint required")
	}
	if cfg.DB <= 0 {
		return nil, fmt.Errorf("plc s7: invalid db %d", cfg.DB)
	}
	for i, b := range cfg.Bits {
		if b > 7 {
			return nil, fmt.Errorf("plc s7: bits[%d]=%d out of range", i, b)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// Connect opens the ISO-on-TCP session and reads the signal byte once,
// which proves the data block and offset exist.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h := gos7.NewTCPClientHandler(c.cfg.Endpoint, c.cfg.Rack, c.cfg.Slot)
	h.Timeout = c.cfg.Timeout

	if err := h.Connect(); err != nil {
		return fmt.Errorf("plc s7: connect %s rack=%d slot=%d: %w", c.cfg.Endpoint, c.cfg.Rack, c.cfg.Slot, err)
	}
	cli := gos7.NewClient(h)

	if _, err := readByte(cli, c.cfg.DB, c.cfg.Byte); err != nil {
		_ = h.Close()
		return fmt.Errorf("plc s7: resolve DB%d.DBB%d: %w", c.cfg.DB, c.cfg.Byte, err)
	}

	c.handler = h
	c.client = cli
	return nil
}

// Close closes the session.
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

// Write sets or clears the bit of one channel.
func (c *Client) Write(ctx context.Context, channel int, value bool) error {
	if channel < 0 || channel >= len(c.cfg.Bits) {
		return fmt.Errorf("plc s7: channel %d out of range", channel)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return errors.New("plc s7: not connected")
	}

	cur, err := readByte(c.client, c.cfg.DB, c.cfg.Byte)
	if err != nil {
		return fmt.Errorf("plc s7: read DB%d.DBB%d: %w", c.cfg.DB, c.cfg.Byte, err)
	}

	next := SetBit(cur, c.cfg.Bits[channel], value)
	if err := c.client.AGWriteDB(c.cfg.DB, c.cfg.Byte, 1, []byte{next}); err != nil {
		return fmt.Errorf("plc s7: write DB%d.DBX%d.%d: %w", c.cfg.DB, c.cfg.Byte, c.cfg.Bits[channel], err)
	}
	return nil
}

// Probe reads the signal byte.
func (c *Client) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return errors.New("plc s7: not connected")
	}
	_, err := readByte(c.client, c.cfg.DB, c.cfg.Byte)
	return err
}

// ---- helpers (pure geometry) ----

func readByte(cli gos7.Client, db, offset int) (byte, error) {
	buf := make([]byte, 1)
	if err := cli.AGReadDB(db, offset, 1, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// SetBit returns b with bit set to value; the other bits are untouched.
func SetBit(b byte, bit uint8, value bool) byte {
	if value {
		return b | 1<<bit
	}
	return b &^ (1 << bit)
}
