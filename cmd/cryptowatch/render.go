package main

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"

	"cryptoWatch/internal/session"
)

//go:embed templates/*.md
var templates embed.FS

var views = template.Must(template.New("views").Funcs(template.FuncMap{
	"cell": cell,
}).ParseFS(templates, "templates/*.md"))

type view struct {
	Query  string
	Notice string
	Rows   []session.Row
}

// cell keeps user-provided text from breaking a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func renderMarkdown(name string, data view) (string, error) {
	var b strings.Builder
	if err := views.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// writeView renders the named template and styles it for the terminal
// unless plain is set.
func writeView(w io.Writer, name string, data view, plain bool) error {
	md, err := renderMarkdown(name, data)
	if err != nil {
		return err
	}
	if plain {
		_, err = io.WriteString(w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("style markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
