package build

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// Template names.
const (
	InitTemplate  = "__init__.tmpl"
	SetupTemplate = "setup.tmpl"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"pystr":  strconv.Quote,
	"pylist": pyList,
}

// registry holds every template, parsed once at startup.
var registry = mustLoadTemplates(InitTemplate, SetupTemplate)

func mustLoadTemplates(names ...string) map[string]*template.Template {
	m := make(map[string]*template.Template, len(names))
	for _, name := range names {
		data, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			panic(fmt.Sprintf("missing embedded template %s: %v", name, err))
		}
		m[name] = template.Must(template.New(name).Funcs(funcs).Parse(string(data)))
	}
	return m
}

// pyList renders a sorted Python list literal of strings.
func pyList(items []string) string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, s := range sorted {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// FinderData parameterizes the module finder injected into the package
// root.
type FinderData struct {
	Package     string
	Modules     []string
	Subpackages []string
	Sep         string
	Prefix      string
}

// RenderFinder renders the module finder source.
func RenderFinder(data FinderData) (string, error) {
	return render(InitTemplate, data)
}

// SetupData parameterizes the build descriptor.
type SetupData struct {
	Package string
	// Sources are the globs handed to cythonize, relative to the
	// descriptor's directory.
	Sources []string
}

// RenderSetup renders the build descriptor of package pkg. Every flattened
// unit ending in one of suffixes is compiled; no suffixes means ".py".
func RenderSetup(pkg string, suffixes ...string) (string, error) {
	if len(suffixes) == 0 {
		suffixes = []string{".py"}
	}
	data := SetupData{Package: pkg}
	seen := make(map[string]bool, len(suffixes))
	for _, s := range suffixes {
		glob := pkg + "/*" + s
		if !seen[glob] {
			seen[glob] = true
			data.Sources = append(data.Sources, glob)
		}
	}
	return render(SetupTemplate, data)
}

func render(name string, data any) (string, error) {
	tmpl, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown template %s", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}
