package view

import (
	"strings"

	"github.com/matzehuels/topoview/pkg/errors"
)

// Mode selects the renderer.
type Mode string

const (
	Mode2D Mode = "2d"
	Mode3D Mode = "3d"
)

// ParseMode accepts "2d", "3d", "flat" and "perspective", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2d", "flat":
		return Mode2D, nil
	case "3d", "perspective":
		return Mode3D, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidMode, "unknown mode %q (want 2d or 3d)", s)
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Mode3D {
		return Mode2D
	}
	return Mode3D
}
