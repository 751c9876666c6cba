package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/naicud/freecad-mcp/internal/bridge"
	"github.com/naicud/freecad-mcp/internal/freecad"
)

// NewRegistry builds the full tool set on top of the dispatcher.
func NewRegistry(d *bridge.Dispatcher) *Registry {
	r := &Registry{}

	r.Add(Entry{
		Tool: mcp.NewTool("create_document",
			mcp.WithDescription("Create a new document in FreeCAD."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Name of the document to create")),
		),
		Tags:    []string{"document"},
		Handler: createDocument(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("create_object",
			mcp.WithDescription("Create a new object in a FreeCAD document. The object data follows the FreeCAD property model, e.g. {\"Name\": \"Box\", \"Type\": \"Part::Box\", \"Properties\": {\"Length\": 10}}."),
			mcp.WithString("doc_name", mcp.Required(), mcp.Description("Name of the target document")),
			mcp.WithObject("obj_data", mcp.Required(), mcp.Description("Object definition: name, type and properties")),
		),
		Tags:    []string{"object"},
		Handler: createObject(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("edit_object",
			mcp.WithDescription("Edit properties of an existing object in a FreeCAD document."),
			mcp.WithString("doc_name", mcp.Required(), mcp.Description("Name of the target document")),
			mcp.WithString("obj_name", mcp.Required(), mcp.Description("Name of the object to edit")),
			mcp.WithObject("properties", mcp.Required(), mcp.Description("Properties to update on the object")),
		),
		Tags:    []string{"object"},
		Handler: editObject(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("delete_object",
			mcp.WithDescription("Delete an object from a FreeCAD document."),
			mcp.WithString("doc_name", mcp.Required(), mcp.Description("Name of the target document")),
			mcp.WithString("obj_name", mcp.Required(), mcp.Description("Name of the object to delete")),
			mcp.WithDestructiveHintAnnotation(true),
		),
		Tags:    []string{"object"},
		Handler: deleteObject(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("insert_part_from_library",
			mcp.WithDescription("Insert a part from the FreeCAD parts library into the active document."),
			mcp.WithString("relative_path", mcp.Required(), mcp.Description("Path of the part relative to the library root")),
		),
		Tags:    []string{"parts"},
		Handler: insertPart(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("execute_code",
			mcp.WithDescription("Execute arbitrary Python code inside FreeCAD."),
			mcp.WithString("code", mcp.Required(), mcp.Description("Python code to execute")),
		),
		Tags:    []string{"code"},
		Handler: executeCode(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("get_view",
			mcp.WithDescription("Capture a screenshot of the active document from the given view."),
			mcp.WithString("view_name",
				mcp.Description("View to render"),
				mcp.DefaultString(freecad.DefaultView),
				mcp.Enum(freecad.Views...),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		Tags:    []string{"view"},
		Handler: getView(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("get_objects",
			mcp.WithDescription("List all objects in a FreeCAD document."),
			mcp.WithString("doc_name", mcp.Required(), mcp.Description("Name of the document to inspect")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		Tags:         []string{"object"},
		OutputSchema: map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
		Handler:      getObjects(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("get_object",
			mcp.WithDescription("Get a single object of a FreeCAD document with its properties."),
			mcp.WithString("doc_name", mcp.Required(), mcp.Description("Name of the document")),
			mcp.WithString("obj_name", mcp.Required(), mcp.Description("Name of the object")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		Tags:         []string{"object"},
		OutputSchema: map[string]interface{}{"type": "object"},
		Handler:      getObject(d),
	})

	r.Add(Entry{
		Tool: mcp.NewTool("get_parts_list",
			mcp.WithDescription("List the parts available in the FreeCAD parts library."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		Tags:         []string{"parts"},
		OutputSchema: map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		Handler:      getPartsList(d),
	})

	return r
}

// argError reports a malformed tool invocation in-band; tool calls always
// produce a valid protocol response.
func argError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func createDocument(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return argError(err), nil
		}

		return d.RunOperation(ctx, bridge.Command{
			Action: "create document",
			Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
				return fc.CreateDocument(ctx, name)
			},
			OnSuccess: func(res *freecad.Result) string {
				docName := res.Str("document_name")
				if docName == "" {
					docName = name
				}
				return fmt.Sprintf("Document '%s' created successfully", docName)
			},
			OnFailure: func(res *freecad.Result) string {
				return fmt.Sprintf("Failed to create document: %s", res.Error)
			},
		}), nil
	}
}

func createObject(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docName, err := req.RequireString("doc_name")
		if err != nil {
			return argError(err), nil
		}
		objData, ok := req.GetArguments()["obj_data"].(map[string]interface{})
		if !ok {
			return argError(fmt.Errorf("obj_data must be an object")), nil
		}

		return d.RunOperation(ctx, bridge.Command{
			Action:     "create object",
			Screenshot: true,
			Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
				return fc.CreateObject(ctx, docName, objData)
			},
			OnSuccess: func(res *freecad.Result) string {
				return fmt.Sprintf("Object '%s' created successfully", res.Str("object_name"))
			},
			OnFailure: func(res *freecad.Result) string {
				return fmt.Sprintf("Failed to create object: %s", res.Error)
			},
		}), nil
	}
}

func editObject(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docName, err := req.RequireString("doc_name")
		if err != nil {
			return argError(err), nil
		}
		objName, err := req.RequireString("obj_name")
		if err != nil {
			return argError(err), nil
		}
		properties, ok := req.GetArguments()["properties"].(map[string]interface{})
		if !ok {
			return argError(fmt.Errorf("properties must be an object")), nil
		}

		return d.RunOperation(ctx, bridge.Command{
			Action:     "edit object",
			Screenshot: true,
			Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
				return fc.EditObject(ctx, docName, objName, properties)
			},
			OnSuccess: func(res *freecad.Result) string {
				return fmt.Sprintf("Object '%s' edited successfully", objName)
			},
			OnFailure: func(res *freecad.Result) string {
				return fmt.Sprintf("Failed to edit object: %s", res.Error)
			},
		}), nil
	}
}

func deleteObject(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docName, err := req.RequireString("doc_name")
		if err != nil {
			return argError(err), nil
		}
		objName, err := req.RequireString("obj_name")
		if err != nil {
			return argError(err), nil
		}

		return d.RunOperation(ctx, bridge.Command{
			Action: "delete object",
			Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
				return fc.DeleteObject(ctx, docName, objName)
			},
			OnSuccess: func(res *freecad.Result) string {
				return fmt.Sprintf("Object '%s' deleted successfully", objName)
			},
			OnFailure: func(res *freecad.Result) string {
				return fmt.Sprintf("Failed to delete object: %s", res.Error)
			},
		}), nil
	}
}

func insertPart(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		relativePath, err := req.RequireString("relative_path")
		if err != nil {
			return argError(err), nil
		}

		return d.RunOperation(ctx, bridge.Command{
			Action:     "insert part from library",
			Screenshot: true,
			Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
				return fc.InsertPartFromLibrary(ctx, relativePath)
			},
			OnSuccess: func(res *freecad.Result) string {
				return fmt.Sprintf("Part '%s' inserted from library", relativePath)
			},
			OnFailure: func(res *freecad.Result) string {
				return fmt.Sprintf("Failed to insert part from library: %s", res.Error)
			},
		}), nil
	}
}

func executeCode(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return argError(err), nil
		}

		return d.RunOperation(ctx, bridge.Command{
			Action:     "execute code",
			Screenshot: true,
			Call: func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error) {
				return fc.ExecuteCode(ctx, code)
			},
			OnSuccess: func(res *freecad.Result) string {
				if res.Message != "" {
					return fmt.Sprintf("Code executed successfully: %s", res.Message)
				}
				return "Code executed successfully"
			},
			OnFailure: func(res *freecad.Result) string {
				return fmt.Sprintf("Failed to execute code: %s", res.Error)
			},
		}), nil
	}
}

func getView(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		viewName := req.GetString("view_name", freecad.DefaultView)
		if !freecad.IsValidView(viewName) {
			return argError(fmt.Errorf("unknown view %q, valid views: %s",
				viewName, strings.Join(freecad.Views, ", "))), nil
		}

		return d.RunView(ctx, viewName), nil
	}
}

func getObjects(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docName, err := req.RequireString("doc_name")
		if err != nil {
			return argError(err), nil
		}

		return d.RunQuery(ctx, bridge.Query{
			Action: "get objects",
			Call: func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error) {
				return fc.Objects(ctx, docName)
			},
		}), nil
	}
}

func getObject(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docName, err := req.RequireString("doc_name")
		if err != nil {
			return argError(err), nil
		}
		objName, err := req.RequireString("obj_name")
		if err != nil {
			return argError(err), nil
		}

		return d.RunQuery(ctx, bridge.Query{
			Action: "get object",
			Call: func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error) {
				return fc.Object(ctx, docName, objName)
			},
		}), nil
	}
}

func getPartsList(d *bridge.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return d.RunQuery(ctx, bridge.Query{
			Action: "get parts list",
			Call: func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error) {
				return fc.PartsList(ctx)
			},
			Format: func(value interface{}) (string, error) {
				parts, _ := value.([]interface{})
				if len(parts) == 0 {
					return "No parts found in the parts library. The Parts Library addon may not be installed.", nil
				}
				names := make([]string, 0, len(parts))
				for _, p := range parts {
					names = append(names, fmt.Sprintf("%v", p))
				}
				return strings.Join(names, "\n"), nil
			},
		}), nil
	}
}
