package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"
)

// stubControl is a minimal line-framed JSON-RPC server for tests. Each
// registered method returns a canned result or error.
type stubControl struct {
	ln      net.Listener
	results map[string]json.RawMessage
	errors  map[string]*Error
}

func newStubControl(t *testing.T) *stubControl {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &stubControl{
		ln:      ln,
		results: map[string]json.RawMessage{},
		errors:  map[string]*Error{},
	}
	t.Cleanup(func() { _ = ln.Close() })

	go s.serve()
	return s
}

func (s *stubControl) addr() string { return s.ln.Addr().String() }

func (s *stubControl) serve() {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(nc)
	}
}

func (s *stubControl) handle(nc net.Conn) {
	defer nc.Close()
	reader := bufio.NewReader(nc)
	for {
		payload, err := ReadLineMessage(reader)
		if err != nil {
			return
		}

		var req message
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}

		resp := message{JSONRPC: Version, ID: req.ID}
		if rpcErr, ok := s.errors[req.Method]; ok {
			resp.Error = rpcErr
		} else if result, ok := s.results[req.Method]; ok {
			resp.Result = result
		} else {
			resp.Error = &Error{Code: ErrMethodNotFound, Message: "method not found"}
		}

		data, _ := json.Marshal(&resp)
		if err := WriteLineMessage(nc, data); err != nil {
			return
		}
	}
}

func TestCallRoundTrip(t *testing.T) {
	stub := newStubControl(t)
	stub.results["ping"] = json.RawMessage(`true`)

	conn, err := Dial(stub.addr(), time.Second)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	result, err := conn.Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}

	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil || !ok {
		t.Fatalf("unexpected result: %s (err=%v)", result, err)
	}
}

func TestCallRemoteError(t *testing.T) {
	stub := newStubControl(t)
	stub.errors["create_document"] = &Error{Code: ErrInternal, Message: "boom"}

	conn, err := Dial(stub.addr(), time.Second)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	_, err = conn.Call(context.Background(), "create_document", map[string]string{"name": "Demo"})
	if err == nil {
		t.Fatalf("expected error from remote")
	}

	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error %v is not an *rpc.Error", err)
	}
	if rpcErr.Code != ErrInternal || rpcErr.Message != "boom" {
		t.Fatalf("unexpected rpc error: %+v", rpcErr)
	}
}

func TestCallContextDeadline(t *testing.T) {
	// A listener that accepts and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		buf := make([]byte, 4096)
		for {
			if _, err := nc.Read(buf); err != nil {
				return
			}
		}
	}()

	conn, err := Dial(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := conn.Call(ctx, "ping", nil); err == nil {
		t.Fatalf("expected deadline error")
	}
}

func TestCallAfterCloseFails(t *testing.T) {
	stub := newStubControl(t)
	stub.results["ping"] = json.RawMessage(`true`)

	conn, err := Dial(stub.addr(), time.Second)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	conn.Close()

	if _, err := conn.Call(context.Background(), "ping", nil); err == nil {
		t.Fatalf("expected error after close")
	}
}
