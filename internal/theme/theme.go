package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jmylchreest/toastd/internal/config"
)

// ErrNotFound is returned when neither the user directory nor the bundle has a theme.
var ErrNotFound = errors.New("theme not found")

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet with its imports inlined.
type Theme struct {
	Name    string
	Path    string // empty for bundled themes
	CSS     string
	Bundled bool
}

// Info describes an available theme.
type Info struct {
	Name       string
	Path       string
	Bundled    bool
	Overridden bool // a user file shadows the bundled theme of the same name
}

// Dir returns the user's themes directory.
func Dir() string {
	return filepath.Join(config.Dir(), "themes")
}

// Resolve finds a theme by name, preferring dir over the bundle.
func Resolve(name, dir string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}

	if dir != "" {
		path := filepath.Join(dir, name+".css")
		if _, err := os.Stat(path); err == nil {
			return Load(name, path)
		}
	}

	if css, ok := Embedded(name); ok {
		return &Theme{
			Name:    name,
			CSS:     ProcessImports(css, "", nil),
			Bundled: true,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Load reads a theme file and inlines its imports.
func Load(name, path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme %s: %w", name, err)
	}
	return &Theme{
		Name: name,
		Path: path,
		CSS:  ProcessImports(string(data), filepath.Dir(path), nil),
	}, nil
}

// ProcessImports inlines @import statements. Relative paths resolve against
// baseDir; a missing file falls back to a bundled partial or theme of the same
// name. seen guards against import cycles.
func ProcessImports(css, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		target := sub[1]

		full := target
		if !filepath.IsAbs(target) {
			full = filepath.Join(baseDir, target)
		}
		if seen[full] {
			return "/* circular import prevented: " + target + " */"
		}
		seen[full] = true

		// Bundled CSS has no directory of its own; its imports are bundled too.
		var data []byte
		err := os.ErrNotExist
		if baseDir != "" || filepath.IsAbs(target) {
			data, err = os.ReadFile(full)
		}
		if err != nil {
			base := filepath.Base(target)
			if strings.HasPrefix(base, "_") {
				if css, ok := embeddedPartial(base); ok {
					return "/* imported (embedded): " + target + " */\n" + ProcessImports(css, "", seen)
				}
			}
			if css, ok := Embedded(strings.TrimSuffix(base, ".css")); ok {
				return "/* imported (embedded): " + target + " */\n" + ProcessImports(css, "", seen)
			}
			return "/* import failed: " + target + " - " + err.Error() + " */"
		}

		return "/* imported: " + target + " */\n" + ProcessImports(string(data), filepath.Dir(full), seen)
	})
}

// List returns bundled themes followed by user themes from dir, sorted by name.
func List(dir string) ([]Info, error) {
	byName := make(map[string]*Info)
	for _, name := range Bundled() {
		byName[name] = &Info{Name: name, Bundled: true}
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read themes directory: %w", err)
		}
		for _, e := range entries {
			file := e.Name()
			if e.IsDir() || strings.HasPrefix(file, "_") || filepath.Ext(file) != ".css" {
				continue
			}
			name := strings.TrimSuffix(file, ".css")
			path := filepath.Join(dir, file)
			if info, ok := byName[name]; ok {
				info.Path = path
				info.Overridden = true
				continue
			}
			byName[name] = &Info{Name: name, Path: path}
		}
	}

	infos := make([]Info, 0, len(byName))
	for _, info := range byName {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
