// Package freecad provides the typed client for the FreeCAD control
// surface and the process-wide connection manager.
package freecad

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/naicud/freecad-mcp/internal/rpc"
)

// ControlSurface is the remote vocabulary of the FreeCAD RPC add-on, one
// method per remote operation.
type ControlSurface interface {
	Ping(ctx context.Context) (bool, error)
	CreateDocument(ctx context.Context, name string) (*Result, error)
	CreateObject(ctx context.Context, doc string, obj map[string]interface{}) (*Result, error)
	EditObject(ctx context.Context, doc, obj string, properties map[string]interface{}) (*Result, error)
	DeleteObject(ctx context.Context, doc, obj string) (*Result, error)
	InsertPartFromLibrary(ctx context.Context, relativePath string) (*Result, error)
	ExecuteCode(ctx context.Context, code string) (*Result, error)
	ActiveScreenshot(ctx context.Context, viewName string) ([]byte, error)
	Objects(ctx context.Context, doc string) ([]interface{}, error)
	Object(ctx context.Context, doc, obj string) (map[string]interface{}, error)
	PartsList(ctx context.Context) ([]interface{}, error)
}

// Client implements ControlSurface over a single rpc.Conn. Every call is a
// blocking round-trip bounded by callTimeout (zero disables the deadline).
type Client struct {
	conn        *rpc.Conn
	callTimeout time.Duration
}

// NewClient wraps an open control connection.
func NewClient(conn *rpc.Conn, callTimeout time.Duration) *Client {
	return &Client{conn: conn, callTimeout: callTimeout}
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.conn.Call(ctx, method, params)
}

func (c *Client) callResult(ctx context.Context, method string, params interface{}) (*Result, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return &res, nil
}

// Ping issues the liveness probe.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	raw, err := c.call(ctx, "ping", nil)
	if err != nil {
		return false, err
	}
	var alive bool
	if err := json.Unmarshal(raw, &alive); err != nil {
		return false, fmt.Errorf("decode ping result: %w", err)
	}
	return alive, nil
}

// CreateDocument creates a new document.
func (c *Client) CreateDocument(ctx context.Context, name string) (*Result, error) {
	return c.callResult(ctx, "create_document", map[string]interface{}{"name": name})
}

// CreateObject creates an object in the given document.
func (c *Client) CreateObject(ctx context.Context, doc string, obj map[string]interface{}) (*Result, error) {
	return c.callResult(ctx, "create_object", map[string]interface{}{
		"doc_name": doc,
		"obj_data": obj,
	})
}

// EditObject updates properties of an existing object.
func (c *Client) EditObject(ctx context.Context, doc, obj string, properties map[string]interface{}) (*Result, error) {
	return c.callResult(ctx, "edit_object", map[string]interface{}{
		"doc_name":   doc,
		"obj_name":   obj,
		"properties": properties,
	})
}

// DeleteObject removes an object from the given document.
func (c *Client) DeleteObject(ctx context.Context, doc, obj string) (*Result, error) {
	return c.callResult(ctx, "delete_object", map[string]interface{}{
		"doc_name": doc,
		"obj_name": obj,
	})
}

// InsertPartFromLibrary inserts a part from the parts library.
func (c *Client) InsertPartFromLibrary(ctx context.Context, relativePath string) (*Result, error) {
	return c.callResult(ctx, "insert_part_from_library", map[string]interface{}{
		"relative_path": relativePath,
	})
}

// ExecuteCode runs arbitrary Python code inside FreeCAD.
func (c *Client) ExecuteCode(ctx context.Context, code string) (*Result, error) {
	return c.callResult(ctx, "execute_code", map[string]interface{}{"code": code})
}

// ActiveScreenshot renders the active view. It returns nil bytes when the
// remote side has no view to render.
func (c *Client) ActiveScreenshot(ctx context.Context, viewName string) ([]byte, error) {
	raw, err := c.call(ctx, "get_active_screenshot", map[string]interface{}{
		"view_name": viewName,
	})
	if err != nil {
		return nil, err
	}

	var encoded *string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("decode screenshot result: %w", err)
	}
	if encoded == nil || *encoded == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(*encoded)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot data: %w", err)
	}
	return data, nil
}

// Objects lists the objects of a document.
func (c *Client) Objects(ctx context.Context, doc string) ([]interface{}, error) {
	raw, err := c.call(ctx, "get_objects", map[string]interface{}{"doc_name": doc})
	if err != nil {
		return nil, err
	}
	var objs []interface{}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("decode objects result: %w", err)
	}
	return objs, nil
}

// Object fetches a single object of a document.
func (c *Client) Object(ctx context.Context, doc, obj string) (map[string]interface{}, error) {
	raw, err := c.call(ctx, "get_object", map[string]interface{}{
		"doc_name": doc,
		"obj_name": obj,
	})
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode object result: %w", err)
	}
	return m, nil
}

// PartsList enumerates the parts library.
func (c *Client) PartsList(ctx context.Context) ([]interface{}, error) {
	raw, err := c.call(ctx, "get_parts_list", nil)
	if err != nil {
		return nil, err
	}
	var parts []interface{}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("decode parts list result: %w", err)
	}
	return parts, nil
}
