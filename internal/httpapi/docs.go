package httpapi

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"
)

// docsTemplate renders the tool documentation. All registry strings pass
// through html/template's contextual escaping; tool names and descriptions
// are caller-supplied and must not be able to inject markup.
var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>freecad-mcp tools</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
h2 { border-bottom: 1px solid #ccc; padding-bottom: .2rem; }
.tag { background: #eef; border-radius: 3px; padding: 0 .4rem; margin-right: .3rem; font-size: .8rem; }
pre { background: #f6f6f6; padding: .6rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>freecad-mcp tools</h1>
<p>{{len .Tools}} tools registered.</p>
{{range .Tools}}
<h2>{{.Name}}</h2>
<p>{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</p>
<p>{{.Description}}</p>
<h3>Parameters</h3>
<pre>{{.ParametersJSON}}</pre>
{{if .OutputJSON}}<h3>Output</h3>
<pre>{{.OutputJSON}}</pre>{{end}}
{{end}}
</body>
</html>
`))

type docsEntry struct {
	Name           string
	Description    string
	Tags           []string
	ParametersJSON string
	OutputJSON     string
}

type docsPage struct {
	Tools []docsEntry
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	summaries := s.Registry.Summaries()

	page := docsPage{Tools: make([]docsEntry, 0, len(summaries))}
	for _, summary := range summaries {
		page.Tools = append(page.Tools, docsEntry{
			Name:           summary.Name,
			Description:    summary.Description,
			Tags:           summary.Tags,
			ParametersJSON: prettyJSON(summary.Parameters),
			OutputJSON:     prettyJSONOrEmpty(summary.Output),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docsTemplate.Execute(w, page); err != nil {
		log.Printf("httpapi: render docs: %v", err)
	}
}

func prettyJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func prettyJSONOrEmpty(v map[string]interface{}) string {
	if len(v) == 0 {
		return ""
	}
	return prettyJSON(v)
}
