// internal/plc/opcua/client.go
package opcua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// Client writes boolean values to two OPC-UA nodes.
// Each channel owns its node; there is no shared byte.
type Client struct {
	cfg Config

	mu     sync.Mutex
	client *opcua.Client
	nodes  [2]*ua.NodeID
}

// Config is the OPC-UA addressing.
type Config struct {
	Endpoint string
	Nodes    [2]string // node id strings, e.g. "ns=4;i=3"
	Timeout  time.Duration
}

// New creates an unconnected client. Node ids are parsed up front so that a
// malformed id fails at startup rather than on every reconnect.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("plc opcua: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	for i, s := range cfg.Nodes {
		if _, err := ua.ParseNodeID(s); err != nil {
			return nil, fmt.Errorf("plc opcua: nodes[%d]=%q: %w", i, s, err)
		}
	}
	return &Client{cfg: cfg}, nil
}

// Connect opens a session and resolves both nodes by reading their value.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cli, err := opcua.NewClient(c.cfg.Endpoint,
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.AutoReconnect(false),
		opcua.RequestTimeout(c.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("plc opcua: client %s: %w", c.cfg.Endpoint, err)
	}
	if err := cli.Connect(ctx); err != nil {
		return fmt.Errorf("plc opcua: connect %s: %w", c.cfg.Endpoint, err)
	}

	var nodes [2]*ua.NodeID
	for i, s := range c.cfg.Nodes {
		id, err := ua.ParseNodeID(s)
		if err != nil {
			_ = cli.Close(ctx)
			return fmt.Errorf("plc opcua: nodes[%d]=%q: %w", i, s, err)
		}
		if _, err := cli.Node(id).Value(ctx); err != nil {
			_ = cli.Close(ctx)
			return fmt.Errorf("plc opcua: resolve node %s: %w", id, err)
		}
		nodes[i] = id
	}

	c.client = cli
	c.nodes = nodes
	return nil
}

// Close closes the session.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close(ctx)
	c.client = nil
	return err
}

// Write sets the boolean DataValue of one node.
func (c *Client) Write(ctx context.Context, channel int, value bool) error {
	if channel < 0 || channel >= len(c.cfg.Nodes) {
		return fmt.Errorf("plc opcua: channel %d out of range", channel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return errors.New("plc opcua: not connected")
	}

	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      c.nodes[channel],
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask: ua.DataValueValue,
					Value:        ua.MustVariant(value),
				},
			},
		},
	}

	resp, err := c.client.Write(ctx, req)
	if err != nil {
		return fmt.Errorf("plc opcua: write %s: %w", c.nodes[channel], err)
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("plc opcua: write %s: empty result", c.nodes[channel])
	}
	if code := resp.Results[0]; code != ua.StatusOK {
		return fmt.Errorf("plc opcua: write %s rejected: %w", c.nodes[channel], code)
	}
	return nil
}

// Probe reads the server namespace array.
func (c *Client) Probe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return errors.New("plc opcua: not connected")
	}
	_, err := c.client.NamespaceArray(ctx)
	return err
}
