package media

import (
	"path/filepath"
	"strings"

	"podhost/internal/apperr"
)

// resolve maps an object key onto a path below root. Keys with "." or ".."
// segments are rejected outright, even when they would clean to a path
// inside root. It only inspects the key and never touches the filesystem.
func resolve(root, key string) (string, error) {
	if key == "" || strings.ContainsRune(key, 0) {
		return "", apperr.InvalidRequest("Invalid filename")
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) || filepath.IsAbs(key) || filepath.VolumeName(key) != "" {
		return "", apperr.InvalidRequest("Invalid filename")
	}

	for _, seg := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." || seg == "." {
			return "", apperr.InvalidRequest("Invalid filename")
		}
	}

	full := filepath.Join(root, filepath.FromSlash(key))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperr.InvalidRequest("Invalid filename")
	}
	return full, nil
}
