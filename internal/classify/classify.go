// Package classify derives a placement's orientation from its metadata or
// content aspect ratio, and computes the visible surface scale from it.
package classify

import (
	"strings"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// orientationSynonyms maps normalized metadata type strings to an
// orientation. Includes the Vietnamese forms the legacy content database
// still carries.
var orientationSynonyms = map[string]domain.Orientation{
	"landscape":  domain.OrientationLandscape,
	"horizontal": domain.OrientationLandscape,
	"ngang":      domain.OrientationLandscape,
	"portrait":   domain.OrientationPortrait,
	"vertical":   domain.OrientationPortrait,
	"dọc":        domain.OrientationPortrait,
	"đứng":       domain.OrientationPortrait,
}

// Classify returns the orientation for a placement's content.
//
// A non-empty metadata type wins: it is trimmed, lowercased and matched
// against the synonym table, with unrecognized values defaulting to
// landscape. Without metadata the aspect ratio decides: width/height >= 1 is
// landscape, anything narrower is portrait.
func Classify(metadataType string, width, height int) domain.Orientation {
	mt := strings.ToLower(strings.TrimSpace(metadataType))
	if mt != "" {
		if o, ok := orientationSynonyms[mt]; ok {
			return o
		}
		return domain.OrientationLandscape
	}

	if height <= 0 {
		return domain.OrientationLandscape
	}
	if float32(width)/float32(height) >= 1 {
		return domain.OrientationLandscape
	}
	return domain.OrientationPortrait
}

// Ratio returns width/height, or 1 when the height is degenerate.
func Ratio(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}
