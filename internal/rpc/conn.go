// Package rpc implements the JSON-RPC client connection to the FreeCAD
// control socket. Messages are newline-delimited JSON objects over TCP.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is a client connection to the control socket. Concurrent calls are
// interleaved on the single channel via a pending-response map; whether the
// remote side actually tolerates concurrent requests is an assumption about
// the FreeCAD add-on, not something enforced here.
type Conn struct {
	nc     net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	pending   map[string]chan *message
	pendingMu sync.Mutex
	nextID    int64

	closeOnce sync.Once
	done      chan struct{}

	errMu   sync.Mutex
	readErr error
}

// Dial opens a control connection to addr within the given timeout.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &Conn{
		nc:      nc,
		reader:  bufio.NewReaderSize(nc, 64*1024),
		pending: make(map[string]chan *message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call sends a request and waits for the matching response. It honors ctx
// cancellation and deadlines; an expired deadline abandons the pending slot
// but leaves the connection open.
func (c *Conn) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		rawParams = data
	}

	id := atomic.AddInt64(&c.nextID, 1)
	idRaw := json.RawMessage(fmt.Sprintf("%d", id))

	msg := &message{
		JSONRPC: Version,
		ID:      idRaw,
		Method:  method,
		Params:  rawParams,
	}

	respCh := make(chan *message, 1)
	key := string(idRaw)
	c.pendingMu.Lock()
	c.pending[key] = respCh
	c.pendingMu.Unlock()

	if err := c.send(msg); err != nil {
		c.dropPending(key)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.dropPending(key)
		return nil, fmt.Errorf("call %s: %w", method, ctx.Err())
	case <-c.done:
		c.dropPending(key)
		return nil, fmt.Errorf("call %s: connection closed: %w", method, c.err())
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("call %s: %w", method, resp.Error)
		}
		return resp.Result, nil
	}
}

// Close tears the connection down. Pending calls fail with a closed error.
func (c *Conn) Close() error {
	c.close(fmt.Errorf("connection closed"))
	return nil
}

func (c *Conn) close(err error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.readErr = err
		c.errMu.Unlock()
		close(c.done)
		_ = c.nc.Close()
	})
}

func (c *Conn) err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

func (c *Conn) send(msg *message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteLineMessage(c.nc, data)
}

func (c *Conn) readLoop() {
	for {
		payload, err := ReadLineMessage(c.reader)
		if err != nil {
			c.close(fmt.Errorf("read: %w", err))
			return
		}

		var msg message
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.close(fmt.Errorf("unmarshal message: %w", err))
			return
		}

		// The control protocol is strictly client-initiated; anything
		// that is not a response to a pending call is dropped.
		if msg.Method != "" || len(msg.ID) == 0 {
			log.Printf("rpc: ignoring unexpected message method=%q", msg.Method)
			continue
		}

		c.deliver(&msg)
	}
}

func (c *Conn) deliver(msg *message) {
	key := string(msg.ID)
	c.pendingMu.Lock()
	ch, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *Conn) dropPending(key string) {
	c.pendingMu.Lock()
	delete(c.pending, key)
	c.pendingMu.Unlock()
}
