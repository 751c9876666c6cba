package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/naicud/freecad-mcp/internal/freecad"
)

// RunOperation executes a state-mutating remote call and renders the
// outcome. Connection and transport errors are converted to in-band text
// failures; they never propagate as errors.
func (d *Dispatcher) RunOperation(ctx context.Context, cmd Command) *mcp.CallToolResult {
	fc, err := d.Conns.Acquire(ctx)
	if err != nil {
		log.Printf("warning: %s: %v", cmd.Action, err)
		return failure(fmt.Sprintf("Failed to %s: %v", cmd.Action, err))
	}

	res, err := cmd.Call(ctx, fc)
	if err != nil {
		log.Printf("warning: %s: remote call failed: %v", cmd.Action, err)
		return failure(fmt.Sprintf("Failed to %s: %v", cmd.Action, err))
	}

	// Feedback reflects post-operation state, so the screenshot is taken
	// after the call. Screenshot failures degrade to "no screenshot".
	var screenshot []byte
	if cmd.Screenshot {
		screenshot = d.screenshot(ctx, fc, cmd.View)
	}

	msg := renderOperation(cmd, res)
	if !res.Success {
		log.Printf("warning: %s reported failure: %s", cmd.Action, res.Error)
	}

	items := []mcp.Content{textContent(msg)}
	if cmd.Screenshot {
		items = d.Attach(items, screenshot)
	}
	return &mcp.CallToolResult{Content: items, IsError: !res.Success}
}

// RunQuery executes a read-only remote call and renders the result. A
// formatter error fails the whole call.
func (d *Dispatcher) RunQuery(ctx context.Context, q Query) *mcp.CallToolResult {
	fc, err := d.Conns.Acquire(ctx)
	if err != nil {
		log.Printf("warning: %s: %v", q.Action, err)
		return failure(fmt.Sprintf("Failed to %s: %v", q.Action, err))
	}

	value, err := q.Call(ctx, fc)
	if err != nil {
		log.Printf("warning: %s: remote call failed: %v", q.Action, err)
		return failure(fmt.Sprintf("Failed to %s: %v", q.Action, err))
	}

	var screenshot []byte
	if q.Screenshot {
		screenshot = d.screenshot(ctx, fc, q.View)
	}

	text, err := renderQuery(q, value)
	if err != nil {
		log.Printf("warning: %s: formatting failed: %v", q.Action, err)
		return failure(fmt.Sprintf("Failed to %s: %v", q.Action, err))
	}

	items := []mcp.Content{textContent(text)}
	if q.Screenshot {
		items = d.Attach(items, screenshot)
	}
	return &mcp.CallToolResult{Content: items}
}

// RunView captures a single rendered view. Unlike the executors above the
// response is image-only on success; text appears only when no image can
// be delivered.
func (d *Dispatcher) RunView(ctx context.Context, viewName string) *mcp.CallToolResult {
	fc, err := d.Conns.Acquire(ctx)
	if err != nil {
		log.Printf("warning: get view: %v", err)
		return failure(fmt.Sprintf("Failed to get view: %v", err))
	}

	screenshot, err := fc.ActiveScreenshot(ctx, viewName)
	if err != nil {
		log.Printf("warning: get view: screenshot failed: %v", err)
		return failure(fmt.Sprintf("Failed to get view: %v", err))
	}

	if d.TextOnly {
		return &mcp.CallToolResult{Content: []mcp.Content{
			textContent("screenshot feedback is disabled (text-only mode)"),
		}}
	}

	items := d.Attach(nil, screenshot)
	return &mcp.CallToolResult{Content: items}
}

func (d *Dispatcher) screenshot(ctx context.Context, fc freecad.ControlSurface, view string) []byte {
	if view == "" {
		view = freecad.DefaultView
	}
	shot, err := fc.ActiveScreenshot(ctx, view)
	if err != nil {
		log.Printf("bridge: screenshot failed: %v", err)
		return nil
	}
	return shot
}

// renderOperation picks the message formatter by outcome. A panicking
// formatter falls back to the generic template instead of failing the call.
func renderOperation(cmd Command, res *freecad.Result) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("warning: %s: formatter panicked: %v", cmd.Action, r)
			msg = genericMessage(cmd.Action, res)
		}
	}()

	if res.Success {
		if cmd.OnSuccess == nil {
			return genericMessage(cmd.Action, res)
		}
		return cmd.OnSuccess(res)
	}
	if cmd.OnFailure == nil {
		return genericMessage(cmd.Action, res)
	}
	return cmd.OnFailure(res)
}

func genericMessage(action string, res *freecad.Result) string {
	if res.Success {
		return fmt.Sprintf("Successfully completed %s", action)
	}
	return fmt.Sprintf("Failed to %s: %s", action, res.Error)
}

// renderQuery serializes a read result, defaulting to indented JSON.
func renderQuery(q Query, value interface{}) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter panicked: %v", r)
		}
	}()

	if q.Format != nil {
		return q.Format(value)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize result: %w", err)
	}
	return string(data), nil
}
