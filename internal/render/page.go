package render

import (
	"html/template"

	"github.com/strrl/headview/internal/packager"
)

var pageTemplate = template.Must(template.New("head_view").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div id="headview-{{.ViewID}}" data-view-id="{{.ViewID}}">
  <span style="user-select:none">
    Layer: <select id="layer"></select>
{{- if .Segmented}}
    Attention: <select id="filter">
{{- range .Filters}}
      <option value="{{.Value}}">{{.Label}}</option>
{{- end}}
    </select>
{{- end}}
  </span>
  <div id="vis"></div>
</div>
<script>window.params = {{.Params}};</script>
<script src="{{.ScriptSrc}}"></script>
</body>
</html>
`))

type filterOption struct {
	Value string
	Label string
}

type pageData struct {
	Title     string
	ViewID    string
	Segmented bool
	Filters   []filterOption
	Params    template.JS
	ScriptSrc string
}

func newPageData(title, viewID, scriptSrc string, pkg *packager.RenderPackage, params []byte) pageData {
	data := pageData{
		Title:     title,
		ViewID:    viewID,
		Segmented: pkg.Segmented(),
		Params:    template.JS(params),
		ScriptSrc: scriptSrc,
	}
	for _, f := range pkg.Filters() {
		data.Filters = append(data.Filters, filterOption{Value: string(f), Label: f.Label()})
	}
	return data
}
