// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
)

const statusTemplate = `
<h2 id="analyzer">Source Analyzer</h2>
<p>{{.BuildInfo}}</p>
<p>{{.Interned}} identifiers interned</p>
<table border="1">
<tr>
<th>unit</th>
<th>declarations</th>
<th>references</th>
<th>unresolved</th>
<th>max depth</th>
<th>errors</th>
<th>loads</th>
<th>load errors</th>
<th>skips</th>
</tr>
{{range .Units}}
<tr>
<td><a href="/unitz?unit={{.Name}}">{{.Name}}</a></td>
<td>{{.Decls}}</td>
<td>{{.Refs}}</td>
<td>{{.Unresolved}}</td>
<td>{{.MaxDepth}}</td>
<td>{{if .Err}}<pre>{{.Err}}</pre>{{else}}No errors{{end}}</td>
<td>{{.Loads}}</td>
<td>{{.LoadErrors}}</td>
<td>{{.Skips}}</td>
</tr>
{{end}}
</table>
`

var statusTmpl = template.Must(template.New("analyzer").Parse(statusTemplate))

type unitStatus struct {
	Name                     string
	Decls, Refs, Unresolved  int
	MaxDepth                 int
	Err                      error
	Loads, LoadErrors, Skips string
}

// WriteStatusHTML writes the current state of the analyzer as HTML to the given writer w.
func (a *Analyzer) WriteStatusHTML(w io.Writer) error {
	data := struct {
		BuildInfo BuildInfo
		Interned  int
		Units     []unitStatus
	}{
		BuildInfo: a.buildInfo,
		Interned:  a.InternedIdentifiers(),
	}
	for _, u := range a.Units() {
		_, err := a.Unit(u.Name)
		s := unitStatus{
			Name:       u.Name,
			Decls:      len(u.Decls),
			Refs:       len(u.Refs),
			Unresolved: len(u.Unresolved),
			MaxDepth:   u.MaxDepth,
			Err:        err,
			Loads:      "0",
			LoadErrors: "0",
			Skips:      "0",
		}
		if v := SourceLoads.Get(u.Name); v != nil {
			s.Loads = v.String()
		}
		if v := SourceLoadErrors.Get(u.Name); v != nil {
			s.LoadErrors = v.String()
		}
		if v := SourceSkips.Get(u.Name); v != nil {
			s.Skips = v.String()
		}
		data.Units = append(data.Units, s)
	}
	return statusTmpl.Execute(w, data)
}

// ServeHTTP serves the status page.
func (a *Analyzer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-type", "text/html")
	fmt.Fprintf(w, "<html><head><title>csym</title></head><body><h1>csym</h1>")
	if err := a.WriteStatusHTML(w); err != nil {
		fmt.Fprintf(w, "<pre>%s</pre>", template.HTMLEscapeString(err.Error()))
	}
	fmt.Fprintf(w, `<p>See <a href="/metrics">/metrics</a>, <a href="/debug/vars">/debug/vars</a> and <a href="/tracez">/tracez</a>.</p></body></html>`)
}

// UnitzHandler serves the report for the unit named by the unit query
// parameter, or a list of all units if there is none.
func (a *Analyzer) UnitzHandler(w http.ResponseWriter, req *http.Request) {
	name := req.URL.Query().Get("unit")
	if name != "" {
		u, err := a.Unit(name)
		if u == nil {
			http.Error(w, "No unit found", http.StatusNotFound)
			return
		}
		w.Header().Add("Content-type", "text/plain")
		if werr := writeUnit(w, u, err); werr != nil {
			return
		}
		for _, d := range u.Decls {
			fmt.Fprintf(w, "\t%s\n", d)
		}
		return
	}
	w.Header().Add("Content-type", "text/html")
	fmt.Fprintf(w, "<ul>")
	for _, u := range a.Units() {
		fmt.Fprintf(w, "<li><a href=\"?unit=%s\">%s</a></li>", template.URLQueryEscaper(u.Name), template.HTMLEscapeString(u.Name))
	}
	fmt.Fprintf(w, "</ul>")
}
