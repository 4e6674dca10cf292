package api

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

// jsonSerializer swaps echo's encoding/json for goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	var ute *json.UnmarshalTypeError
	var se *json.SyntaxError
	switch {
	case errors.As(err, &ute):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Unmarshal type error: expected=%v, got=%v, field=%v, offset=%v", ute.Type, ute.Value, ute.Field, ute.Offset)).SetInternal(err)
	case errors.As(err, &se):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Syntax error: offset=%v, error=%v", se.Offset, se.Error())).SetInternal(err)
	}
	return err
}

type filterOption struct {
	Value    string
	Label    string
	Selected bool
}

type dashboardView struct {
	State          stateResponse
	Title          string
	Categories     []filterOption
	Filters        []filterOption
	ExportFilename string
}

type templates struct {
	t *template.Template
}

func newTemplates() *templates {
	return &templates{t: template.Must(template.New("dashboard").Parse(dashboardPage))}
}

func (t *templates) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.t.ExecuteTemplate(w, name, data)
}

const dashboardPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Directory Hub</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{with .State}}
<form method="post" action="/dashboard/{{.Container}}/category">
  <select name="category">
  {{range $.Categories}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
  </select>
  <button type="submit">Apply</button>
</form>
{{if .Loaded}}
<form method="post" action="/dashboard/{{.Container}}/filter">
  <select name="selector">
  {{range $.Filters}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
  </select>
  <button type="submit">Filter</button>
</form>
<form method="post" action="/dashboard/{{.Container}}/type">
  <button type="submit" name="kind" value="bar">Bar</button>
  <button type="submit" name="kind" value="pie">Pie</button>
</form>
{{if .Warning}}<div class="alert alert-warning">{{.Warning}}</div>{{end}}
<iframe id="{{.Container}}" src="/dashboard/{{.Container}}/chart.html" width="960" height="520" frameborder="0"></iframe>
<p><a href="/dashboard/{{.Container}}/export.png" download="{{$.ExportFilename}}">Download chart</a></p>
{{else}}
<div class="alert alert-danger">Error loading chart data. Please try again later.{{if .Error}} ({{.Error}}){{end}}</div>
{{end}}
{{end}}
</body>
</html>
`
