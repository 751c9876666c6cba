package freecad

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/naicud/freecad-mcp/internal/rpc"
)

// ErrConnection reports that the FreeCAD control surface cannot be reached
// or failed its liveness probe.
var ErrConnection = errors.New("freecad connection unavailable")

const dialTimeout = 5 * time.Second

// Handle is an open, closable control connection.
type Handle interface {
	ControlSurface
	Close() error
}

// connector opens a not-yet-probed control connection.
type connector func() (Handle, error)

// Manager owns the single cached control connection. The first Acquire
// dials and probes; on success the handle is reused by every later call.
// A failed remote call does NOT invalidate the cached handle: a still-open
// channel may continue to serve even if a single RPC failed, so failures
// surface per call and only a failed probe (or Close) drops the handle.
type Manager struct {
	addr    string
	connect connector

	mu     sync.Mutex
	handle Handle
}

// NewManager creates a manager for the control surface at addr. Every
// remote call on the managed connection is bounded by callTimeout (zero
// disables the deadline).
func NewManager(addr string, callTimeout time.Duration) *Manager {
	return &Manager{
		addr: addr,
		connect: func() (Handle, error) {
			conn, err := rpc.Dial(addr, dialTimeout)
			if err != nil {
				return nil, err
			}
			return NewClient(conn, callTimeout), nil
		},
	}
}

// Acquire returns the cached control connection, creating and probing it
// first if needed. When the probe fails the handle is discarded, so the
// next Acquire retries from scratch.
func (m *Manager) Acquire(ctx context.Context) (ControlSurface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return m.handle, nil
	}

	handle, err := m.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	alive, err := handle.Ping(ctx)
	if err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("%w: ping failed: %v", ErrConnection, err)
	}
	if !alive {
		_ = handle.Close()
		return nil, fmt.Errorf("%w: ping returned false", ErrConnection)
	}

	m.handle = handle
	log.Printf("freecad: connected to %s", m.addr)
	return m.handle, nil
}

// Close drops the cached handle. The control channel is stateless per call,
// so no remote teardown is required beyond closing the socket.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		_ = m.handle.Close()
		m.handle = nil
	}
}
