package rmi

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client is the low-level transport half of a Remote Registry: one
// persistent connection to a single peer's Local Registry, reused across
// calls and transparently re-dialed after a transport failure. Domain
// stubs (e.g. bank.PeerStub) hold one Client plus the hand-written
// marshaling for their own interface's methods.
type Client struct {
	host string
	port int

	dialTimeout time.Duration
	callTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewClient returns a Client pointed at host:port. No connection is made
// until the first Call.
func NewClient(host string, port int) *Client {
	return &Client{
		host:        host,
		port:        port,
		dialTimeout: 5 * time.Second,
		callTimeout: 10 * time.Second,
	}
}

func (c *Client) addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// Call invokes service@method on the peer this Client is dialed to.
// clientHash is the caller's HashInterface value for the service
// interface it believes it is calling; args are already wire-ready (JSON
// literals or RemoteRef values — auto-export must have run before Call is
// reached). The raw JSON result is returned for the caller's stub to
// decode against its own return types.
func (c *Client) Call(selector, clientHash string, args ...any) (json.RawMessage, error) {
	reqArgs := make([]json.RawMessage, 0, len(args)+1)
	hashArg, err := encodeArg(clientHash)
	if err != nil {
		return nil, fmt.Errorf("rmi: encode client hash: %w", err)
	}
	reqArgs = append(reqArgs, hashArg)
	for _, a := range args {
		raw, err := encodeArg(a)
		if err != nil {
			return nil, fmt.Errorf("rmi: encode argument: %w", err)
		}
		reqArgs = append(reqArgs, raw)
	}

	body, err := json.Marshal(request{Selector: selector, Args: reqArgs})
	if err != nil {
		return nil, fmt.Errorf("rmi: encode request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConnLocked()
	if err != nil {
		return nil, err
	}

	conn.SetDeadline(time.Now().Add(c.callTimeout))
	if err := writeFrame(conn, body); err != nil {
		c.dropLocked()
		return nil, asConnError("write", c.addr(), err)
	}

	respBody, err := readFrame(conn)
	if err != nil {
		c.dropLocked()
		return nil, asConnError("read", c.addr(), err)
	}
	conn.SetDeadline(time.Time{})

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("rmi: decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fromWireError(resp.Error)
	}
	return resp.Result, nil
}

func (c *Client) ensureConnLocked() (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := net.DialTimeout("tcp", c.addr(), c.dialTimeout)
	if err != nil {
		return nil, asConnError("dial", c.addr(), err)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close releases the underlying connection, if any. A Client remains
// usable after Close; the next Call simply re-dials.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
	return nil
}
