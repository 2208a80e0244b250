package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// entityNameRegex matches scene entity names usable in constraint expressions.
var entityNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedNames are the reference keywords of the expression language.
var reservedNames = map[string]bool{
	"self":   true,
	"parent": true,
	"root":   true,
	"prev":   true,
}

// ValidateEntityName validates a scene entity name.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 64 characters
//   - Must start with a letter or underscore, then letters, digits or '_'
//   - Cannot be one of the reference keywords (self, parent, root, prev)
func ValidateEntityName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidScene, "entity name cannot be empty")
	}

	const maxNameLength = 64
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidScene, "entity name too long (max %d characters)", maxNameLength)
	}

	if !entityNameRegex.MatchString(name) {
		return New(ErrCodeInvalidScene, "invalid entity name: %q", name)
	}

	if reservedNames[name] {
		return New(ErrCodeInvalidScene, "entity name %q is a reserved reference", name)
	}

	return nil
}

// ValidateScenePath validates the path of a scene file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Extension must be .toml, .yaml or .yml
func ValidateScenePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
		return nil
	}
	return New(ErrCodeInvalidFormat, "unsupported scene format %q (must be .toml, .yaml or .yml)", filepath.Ext(path))
}
