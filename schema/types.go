package schema

import "fmt"

// TileKey identifies one tile: its grid cell, zoom level and document part.
// It is comparable and used directly as a map key.
type TileKey struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Zoom int `json:"zoom"`
	Part int `json:"part"`
}

// String renders the key as x:y:zoom:part.
func (k TileKey) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", k.X, k.Y, k.Zoom, k.Part)
}

// TileImage is a rendered tile payload plus the metadata read from its header.
type TileImage struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Permission is the session's interaction mode.
type Permission string

const (
	// PermissionView allows viewing only.
	PermissionView Permission = "view"
	// PermissionEdit allows editing; the cursor is only drawn in this mode.
	PermissionEdit Permission = "edit"
	// PermissionReadOnly is forced after failures and when opened read-only.
	PermissionReadOnly Permission = "readonly"
)

// ParsePermission maps a configuration value to a Permission.
func ParsePermission(value string) (Permission, error) {
	switch Permission(value) {
	case PermissionView, PermissionEdit, PermissionReadOnly:
		return Permission(value), nil
	case "":
		return PermissionView, nil
	default:
		return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidConfig, value)
	}
}

// DocType is the document kind reported by the server.
type DocType string

// DocTypeText is the single-flow paginated kind; it tracks pages instead of parts.
const DocTypeText DocType = "text"

// IsText reports whether the document is the single-flow kind.
func (d DocType) IsText() bool {
	return d == DocTypeText
}
