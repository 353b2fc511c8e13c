package classify

import (
	"cogentcore.org/core/math32"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// SizeMode selects how the held axis of the display surface is chosen.
type SizeMode int

const (
	// OriginalSize holds the axis orthogonal to the varying one at the
	// container's original scale.
	OriginalSize SizeMode = iota

	// FixedSize holds that axis at a configured constant instead.
	FixedSize
)

// Limits clamps the computed varying axis.
type Limits struct {
	Min float32
	Max float32
}

// FixedDims are the constants used by FixedSize mode.
type FixedDims struct {
	Width  float32
	Height float32
}

// DisplayVariant names which of the two alternate display sub-structures is
// visible for a placement. At most one is shown at a time.
type DisplayVariant int

const (
	ShowLandscape DisplayVariant = iota
	ShowPortrait
)

// VariantFor maps a classification to the display sub-structure to show.
// Unknown classifications fall back to the landscape variant.
func VariantFor(o domain.Orientation) DisplayVariant {
	if o == domain.OrientationPortrait {
		return ShowPortrait
	}
	return ShowLandscape
}

// ComputeSurfaceScale derives the new surface scale for content with the
// given aspect ratio.
//
// Landscape content holds the height axis and varies the width
// (width = height * ratio); portrait holds the width and varies the height
// (height = width / ratio). The varying axis is clamped to limits and the
// depth axis is never touched.
func ComputeSurfaceScale(original math32.Vector3, ratio float32, o domain.Orientation, mode SizeMode, fixed FixedDims, limits Limits) math32.Vector3 {
	if ratio <= 0 {
		ratio = 1
	}

	out := original
	switch VariantFor(o) {
	case ShowPortrait:
		held := original.X
		if mode == FixedSize {
			held = fixed.Width
		}
		out.X = held
		out.Y = math32.Clamp(held/ratio, limits.Min, limits.Max)
	default:
		held := original.Y
		if mode == FixedSize {
			held = fixed.Height
		}
		out.Y = held
		out.X = math32.Clamp(held*ratio, limits.Min, limits.Max)
	}
	return out
}
