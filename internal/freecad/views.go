package freecad

// DefaultView is the view used for screenshot feedback when a tool does
// not ask for a specific one.
const DefaultView = "Isometric"

// Views enumerates the view names the FreeCAD add-on can render.
var Views = []string{
	"Isometric",
	"Front",
	"Top",
	"Right",
	"Back",
	"Left",
	"Bottom",
	"Dimetric",
	"Trimetric",
}

// IsValidView reports whether name is a renderable view.
func IsValidView(name string) bool {
	for _, v := range Views {
		if v == name {
			return true
		}
	}
	return false
}
