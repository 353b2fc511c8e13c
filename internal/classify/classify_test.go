package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holoboard/placesync/internal/placement/domain"
)

func TestClassify_FromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metaType string
		want     domain.Orientation
	}{
		{"portrait english", "portrait", domain.OrientationPortrait},
		{"portrait vietnamese", "dọc", domain.OrientationPortrait},
		{"portrait vietnamese upright", "đứng", domain.OrientationPortrait},
		{"vertical", "vertical", domain.OrientationPortrait},
		{"landscape english", "landscape", domain.OrientationLandscape},
		{"landscape vietnamese", "ngang", domain.OrientationLandscape},
		{"mixed case with spaces", "  Portrait ", domain.OrientationPortrait},
		{"unrecognized defaults to landscape", "diagonal", domain.OrientationLandscape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// dimensions must not matter when metadata is present
			assert.Equal(t, tt.want, Classify(tt.metaType, 100, 900))
		})
	}
}

func TestClassify_FromAspectRatio(t *testing.T) {
	assert.Equal(t, domain.OrientationLandscape, Classify("", 1920, 1080))
	assert.Equal(t, domain.OrientationLandscape, Classify("", 100, 100)) // ratio exactly 1
	assert.Equal(t, domain.OrientationPortrait, Classify("", 1080, 1920))
}

func TestClassify_DegenerateDimensions(t *testing.T) {
	assert.Equal(t, domain.OrientationLandscape, Classify("", 100, 0))
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 2.0, Ratio(200, 100), 1e-6)
	assert.InDelta(t, 1.0, Ratio(0, 100), 1e-6)
	assert.InDelta(t, 1.0, Ratio(100, -1), 1e-6)
}
