package theme

import (
	"embed"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed themes/*.css
var embedded embed.FS

// DefaultName is the theme used when none is configured or the configured one is missing.
const DefaultName = "default"

// Embedded returns a bundled theme's raw CSS, imports unresolved.
func Embedded(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "_") {
		return "", false
	}
	data, err := embedded.ReadFile("themes/" + name + ".css")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// embeddedPartial returns a bundled partial such as _base.css.
func embeddedPartial(name string) (string, bool) {
	if !strings.HasPrefix(name, "_") {
		name = "_" + name
	}
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	data, err := embedded.ReadFile("themes/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Bundled lists the embedded theme names, partials excluded.
func Bundled() []string {
	entries, err := fs.ReadDir(embedded, "themes")
	if err != nil {
		return []string{DefaultName}
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".css" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".css"))
	}
	sort.Strings(names)
	return names
}
