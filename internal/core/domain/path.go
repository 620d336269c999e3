package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// CanonicalizePath normalizes a path without touching the filesystem:
// repeated separators collapse, "." components drop, ".." components cancel
// a preceding non-".." component. Separators become forward slashes.
// A path that canonicalizes to nothing is rejected with ErrEmptyPath.
func CanonicalizePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	rooted := path[0] == '/' || path[0] == '\\'

	var components []string
	for part := range strings.SplitSeq(strings.ReplaceAll(path, "\\", "/"), "/") {
		switch part {
		case "", ".":
			// collapsed
		case "..":
			if n := len(components); n > 0 && components[n-1] != ".." {
				components = components[:n-1]
			} else if !rooted {
				components = append(components, "..")
			}
			// ".." at the root stays at the root
		default:
			components = append(components, part)
		}
	}

	result := strings.Join(components, "/")
	if rooted {
		result = "/" + result
	}
	if result == "" {
		return "", zerr.With(zerr.Wrap(ErrEmptyPath, "path canonicalizes to nothing"), "path", path)
	}
	return result, nil
}
