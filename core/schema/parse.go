package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artpar/ctrlgen/core/diag"
)

// Input file suffixes.
const (
	GoSuffix   = ".ctrl.go"
	YAMLSuffix = ".ctrl.yaml"
	YMLSuffix  = ".ctrl.yml"
)

// IsInput reports whether name is a controller definition file.
func IsInput(name string) bool {
	return strings.HasSuffix(name, GoSuffix) ||
		strings.HasSuffix(name, YAMLSuffix) ||
		strings.HasSuffix(name, YMLSuffix)
}

// BaseName returns the input file name without its controller suffix.
func BaseName(path string) string {
	name := filepath.Base(path)
	for _, suffix := range []string{GoSuffix, YAMLSuffix, YMLSuffix} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ParseFile reads and parses a controller definition. The diagnostics may hold
// warnings even when parsing succeeds; err is only set when the file cannot be read.
func ParseFile(path string) (*File, diag.List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file %s: %w", path, err)
	}

	file, diags := Parse(path, data)
	return file, diags, nil
}

// Parse parses a controller definition from memory, choosing the frontend by the
// file extension of path.
func Parse(path string, data []byte) (*File, diag.List) {
	switch ext := filepath.Ext(path); ext {
	case ".go":
		return ParseGo(path, data)
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	default:
		var diags diag.List
		diags.Errorf(diag.Pos{File: path}, diag.ModuleSyntax, "unsupported input extension %q", ext)
		return nil, diags
	}
}

// FindInputs expands paths into controller definition files. Directories are walked
// recursively; files are accepted as given. The result is sorted and free of duplicates.
func FindInputs(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var inputs []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if !seen[path] {
				seen[path] = true
				inputs = append(inputs, path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if p != path && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsInput(d.Name()) && !seen[p] {
				seen[p] = true
				inputs = append(inputs, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk dir %s: %w", path, err)
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}
