package peripheral

import (
	"fmt"

	"github.com/reefward/chiller/rpc"
)

// Client is the typed surface over a peripheral service. It implements
// control.PeripheralAPI. All calls go through one rpc.Client and inherit
// its single-flight and reconnect discipline.
type Client struct {
	rpc *rpc.Client
}

// NewClient returns a client for the peripheral service at addr.
func NewClient(addr string, opts ...rpc.ClientOption) *Client {
	return &Client{rpc: rpc.NewClient(addr, opts...)}
}

// Read samples a sensor (served from the service's cache when fresh).
func (c *Client) Read(name string) (float64, error) {
	var value float64
	if err := c.rpc.Call(Request{Name: name, Operation: OpRead}, &value); err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

// IsOn reports a device's switch state.
func (c *Client) IsOn(name string) (bool, error) {
	var on bool
	if err := c.rpc.Call(Request{Name: name, Operation: OpIsOn}, &on); err != nil {
		return false, fmt.Errorf("is_on %s: %w", name, err)
	}
	return on, nil
}

// TurnOn switches a device on.
func (c *Client) TurnOn(name string) error {
	if err := c.rpc.Call(Request{Name: name, Operation: OpTurnOn}, nil); err != nil {
		return fmt.Errorf("turn_on %s: %w", name, err)
	}
	return nil
}

// TurnOff switches a device off.
func (c *Client) TurnOff(name string) error {
	if err := c.rpc.Call(Request{Name: name, Operation: OpTurnOff}, nil); err != nil {
		return fmt.Errorf("turn_off %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}
