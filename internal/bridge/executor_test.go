package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/naicud/freecad-mcp/internal/freecad"
)

// fakeSurface stubs the parts of the control surface the executors touch;
// the remote call itself is supplied per test through Command.Call.
type fakeSurface struct {
	freecad.ControlSurface

	shot      []byte
	shotErr   error
	shotCalls int
	shotView  string
}

func (f *fakeSurface) ActiveScreenshot(ctx context.Context, viewName string) ([]byte, error) {
	f.shotCalls++
	f.shotView = viewName
	return f.shot, f.shotErr
}

type fakeSource struct {
	fc       freecad.ControlSurface
	err      error
	acquires int
}

func (s *fakeSource) Acquire(ctx context.Context) (freecad.ControlSurface, error) {
	s.acquires++
	return s.fc, s.err
}

func firstText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("empty response content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("first item is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestRunOperationSuccessMessage(t *testing.T) {
	surface := &fakeSurface{}
	d := New(&fakeSource{fc: surface}, false)

	result := d.RunOperation(context.Background(), Command{
		Action: "create document",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return &freecad.Result{Success: true, Fields: map[string]interface{}{"document_name": "Demo"}}, nil
		},
		OnSuccess: func(res *freecad.Result) string {
			return fmt.Sprintf("Document '%s' created successfully", res.Str("document_name"))
		},
	})

	if got := firstText(t, result); got != "Document 'Demo' created successfully" {
		t.Errorf("message = %q", got)
	}
	if len(result.Content) != 1 {
		t.Errorf("len(content) = %d, want 1 (screenshot disabled)", len(result.Content))
	}
	if result.IsError {
		t.Errorf("success response should not be flagged as error")
	}
	if surface.shotCalls != 0 {
		t.Errorf("no screenshot should be requested")
	}
}

func TestRunOperationFailureMessage(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunOperation(context.Background(), Command{
		Action: "delete object",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return &freecad.Result{Success: false, Error: "not found"}, nil
		},
		OnFailure: func(res *freecad.Result) string {
			return fmt.Sprintf("Failed to delete object: %s", res.Error)
		},
	})

	if got := firstText(t, result); got != "Failed to delete object: not found" {
		t.Errorf("message = %q", got)
	}
	if !result.IsError {
		t.Errorf("failure response should be flagged as error")
	}
}

func TestRunOperationConnectionFailureShortCircuits(t *testing.T) {
	surface := &fakeSurface{}
	source := &fakeSource{fc: surface, err: fmt.Errorf("%w: ping returned false", freecad.ErrConnection)}
	d := New(source, false)

	result := d.RunOperation(context.Background(), Command{
		Action:     "create object",
		Screenshot: true,
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			t.Fatalf("remote call must not run when the connection fails")
			return nil, nil
		},
	})

	if !result.IsError {
		t.Errorf("expected error response")
	}
	if got := firstText(t, result); !strings.Contains(got, "Failed to create object") {
		t.Errorf("message = %q", got)
	}
	if len(result.Content) != 1 {
		t.Errorf("len(content) = %d, want 1 (no feedback on connection failure)", len(result.Content))
	}
	if surface.shotCalls != 0 {
		t.Errorf("no screenshot may be attempted on connection failure")
	}
}

func TestRunOperationRemoteCallErrorIsCaught(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunOperation(context.Background(), Command{
		Action: "execute code",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return nil, errors.New("connection reset by peer")
		},
	})

	if !result.IsError {
		t.Errorf("expected error response")
	}
	if got := firstText(t, result); !strings.Contains(got, "Failed to execute code") {
		t.Errorf("message = %q", got)
	}
}

func TestRunOperationScreenshotAppendedLast(t *testing.T) {
	surface := &fakeSurface{shot: []byte{0x89, 'P', 'N', 'G'}}
	d := New(&fakeSource{fc: surface}, false)

	result := d.RunOperation(context.Background(), Command{
		Action:     "create object",
		Screenshot: true,
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return &freecad.Result{Success: true}, nil
		},
	})

	if len(result.Content) != 2 {
		t.Fatalf("len(content) = %d, want 2", len(result.Content))
	}
	if _, ok := result.Content[0].(mcp.TextContent); !ok {
		t.Errorf("first item is %T, want TextContent", result.Content[0])
	}
	img, ok := result.Content[1].(mcp.ImageContent)
	if !ok {
		t.Fatalf("last item is %T, want ImageContent", result.Content[1])
	}
	if img.MIMEType != "image/png" {
		t.Errorf("mime = %q", img.MIMEType)
	}
	if surface.shotView != freecad.DefaultView {
		t.Errorf("view = %q, want default %q", surface.shotView, freecad.DefaultView)
	}
}

func TestRunOperationScreenshotFailureIsSwallowed(t *testing.T) {
	surface := &fakeSurface{shotErr: errors.New("no active view")}
	d := New(&fakeSource{fc: surface}, false)

	result := d.RunOperation(context.Background(), Command{
		Action:     "insert part",
		Screenshot: true,
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return &freecad.Result{Success: true}, nil
		},
	})

	if result.IsError {
		t.Errorf("screenshot failure must not fail the call")
	}
	if len(result.Content) != 2 {
		t.Fatalf("len(content) = %d, want 2", len(result.Content))
	}
	text, ok := result.Content[1].(mcp.TextContent)
	if !ok || text.Text != NoPreviewNotice {
		t.Errorf("expected unavailability notice, got %#v", result.Content[1])
	}
}

func TestRunOperationFormatterPanicFallsBack(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunOperation(context.Background(), Command{
		Action: "edit object",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return &freecad.Result{Success: true}, nil
		},
		OnSuccess: func(res *freecad.Result) string {
			panic("bad formatter")
		},
	})

	if result.IsError {
		t.Errorf("formatter panic must not fail a successful call")
	}
	if got := firstText(t, result); got != "Successfully completed edit object" {
		t.Errorf("message = %q", got)
	}
}

func TestRunOperationGenericFailureTemplate(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunOperation(context.Background(), Command{
		Action: "delete object",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
			return &freecad.Result{Success: false, Error: "locked"}, nil
		},
		OnFailure: func(res *freecad.Result) string {
			panic("bad formatter")
		},
	})

	if got := firstText(t, result); got != "Failed to delete object: locked" {
		t.Errorf("message = %q", got)
	}
}

func TestRunQueryDefaultsToJSON(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunQuery(context.Background(), Query{
		Action: "get objects",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error) {
			return []string{"Box", "Cylinder"}, nil
		},
	})

	if result.IsError {
		t.Fatalf("unexpected error response: %#v", result)
	}
	got := firstText(t, result)
	if !strings.Contains(got, "\"Box\"") || !strings.Contains(got, "\"Cylinder\"") {
		t.Errorf("json output = %q", got)
	}
}

func TestRunQueryFormatterErrorFailsCall(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunQuery(context.Background(), Query{
		Action: "get object",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error) {
			return map[string]interface{}{"Name": "Box"}, nil
		},
		Format: func(interface{}) (string, error) {
			return "", errors.New("template blew up")
		},
	})

	if !result.IsError {
		t.Errorf("formatter error must fail the query call")
	}
	if got := firstText(t, result); !strings.Contains(got, "Failed to get object") {
		t.Errorf("message = %q", got)
	}
}

func TestRunQueryFormatterPanicFailsCall(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunQuery(context.Background(), Query{
		Action: "get parts list",
		Call: func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error) {
			return nil, nil
		},
		Format: func(interface{}) (string, error) {
			panic("nil deref")
		},
	})

	if !result.IsError {
		t.Errorf("formatter panic must fail the query call")
	}
}

func TestRunViewReturnsImageOnly(t *testing.T) {
	surface := &fakeSurface{shot: []byte{1, 2, 3}}
	d := New(&fakeSource{fc: surface}, false)

	result := d.RunView(context.Background(), "Top")

	if len(result.Content) != 1 {
		t.Fatalf("len(content) = %d, want 1", len(result.Content))
	}
	img, ok := result.Content[0].(mcp.ImageContent)
	if !ok {
		t.Fatalf("item is %T, want ImageContent", result.Content[0])
	}
	if img.MIMEType != "image/png" {
		t.Errorf("mime = %q", img.MIMEType)
	}
	if surface.shotView != "Top" {
		t.Errorf("view = %q, want Top", surface.shotView)
	}
}

func TestRunViewTextOnly(t *testing.T) {
	surface := &fakeSurface{shot: []byte{1}}
	d := New(&fakeSource{fc: surface}, true)

	result := d.RunView(context.Background(), "Front")

	if countImages(result.Content) != 0 {
		t.Errorf("text-only view response must not contain an image")
	}
	if len(result.Content) != 1 {
		t.Errorf("len(content) = %d, want 1", len(result.Content))
	}
}

func TestRunViewNoScreenshot(t *testing.T) {
	d := New(&fakeSource{fc: &fakeSurface{}}, false)

	result := d.RunView(context.Background(), "Bottom")

	if len(result.Content) != 1 {
		t.Fatalf("len(content) = %d, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok || text.Text != NoPreviewNotice {
		t.Errorf("expected unavailability notice, got %#v", result.Content[0])
	}
}
