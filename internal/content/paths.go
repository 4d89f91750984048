package content

import (
	"path"
	"strings"
)

// NormalizePath converts separators to `/`, cleans the path and strips any
// leading slash. The root maps to "".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Dir returns the directory of a normalized path, "" at the root.
func Dir(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// RelativePath returns the relative reference from directory fromDir to the
// file at to. Both are root-relative normalized paths. Resolving the result
// against fromDir with path.Join yields to exactly.
func RelativePath(fromDir, to string) string {
	from := splitSegments(fromDir)
	target := splitSegments(to)

	common := 0
	for common < len(from) && common < len(target)-1 && from[common] == target[common] {
		common++
	}

	parts := make([]string, 0, len(from)-common+len(target)-common)
	for range len(from) - common {
		parts = append(parts, "..")
	}
	parts = append(parts, target[common:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

// PathToRoot returns the relative prefix from the directory of p to the site
// root: "." at the root, "../.." two levels down.
func PathToRoot(p string) string {
	n := len(splitSegments(Dir(p)))
	if n == 0 {
		return "."
	}
	return strings.TrimSuffix(strings.Repeat("../", n), "/")
}

func splitSegments(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
