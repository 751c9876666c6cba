package bridge

import (
	"encoding/base64"

	"github.com/mark3labs/mcp-go/mcp"
)

// NoPreviewNotice is appended when feedback was requested but no
// screenshot could be rendered, so callers always learn why no image
// appeared unless they opted out via text-only mode.
const NoPreviewNotice = "visual preview unavailable in current view"

// Attach appends visual feedback to a response. Rules, in order: text-only
// mode appends nothing; a screenshot is appended as one PNG image item;
// otherwise a textual unavailability notice is appended.
func (d *Dispatcher) Attach(items []mcp.Content, screenshot []byte) []mcp.Content {
	if d.TextOnly {
		return items
	}
	if screenshot != nil {
		return append(items, mcp.ImageContent{
			Type:     "image",
			Data:     base64.StdEncoding.EncodeToString(screenshot),
			MIMEType: "image/png",
		})
	}
	return append(items, textContent(NoPreviewNotice))
}
