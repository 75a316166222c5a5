package voxel

import (
	"fmt"
	"strings"
)

// Mode selects how a Resolution is turned into step sizes and counts.
type Mode int

const (
	// ModeCount takes NumberX and NumberZ; NY follows from square
	// horizontal voxels.
	ModeCount Mode = iota
	// ModeSize takes an edge length Width (x and y) and a Height.
	ModeSize
	// ModeAxisCounts takes independent NumberX, NumberY and NumberZ.
	// Voxels are not forced square.
	ModeAxisCounts
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeCount:
		return "count"
	case ModeSize:
		return "size"
	case ModeAxisCounts:
		return "axis"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count", "voxelanzahl":
		return ModeCount, nil
	case "size":
		return ModeSize, nil
	case "axis", "axis_counts":
		return ModeAxisCounts, nil
	default:
		return 0, fmt.Errorf("unknown grid mode %q", s)
	}
}

// Resolution describes the requested voxel density.
type Resolution struct {
	Mode    Mode
	NumberX int
	NumberY int // ModeAxisCounts only
	NumberZ int
	Width   float64 // ModeSize only
	Height  float64 // ModeSize only
}

// Counts returns a count-driven resolution.
func Counts(nx, nz int) Resolution {
	return Resolution{Mode: ModeCount, NumberX: nx, NumberZ: nz}
}

// Size returns a size-driven resolution.
func Size(width, height float64) Resolution {
	return Resolution{Mode: ModeSize, Width: width, Height: height}
}

// AxisCounts returns a resolution with independent per-axis counts.
func AxisCounts(nx, ny, nz int) Resolution {
	return Resolution{Mode: ModeAxisCounts, NumberX: nx, NumberY: ny, NumberZ: nz}
}
