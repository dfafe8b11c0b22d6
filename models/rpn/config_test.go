package rpn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-rpn/dataset"
	"github.com/nvr-ai/go-rpn/images"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9, cfg.Anchors.Types())
	assert.Equal(t, 256, cfg.RegionCap)
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty sizes", func(c *Config) { c.Anchors.Sizes = nil }, "anchor sizes"},
		{"empty ratios", func(c *Config) { c.Anchors.Ratios = []Ratio{} }, "anchor ratios"},
		{"zero size", func(c *Config) { c.Anchors.Sizes = []float64{128, 0} }, "anchor size 1"},
		{"negative size", func(c *Config) { c.Anchors.Sizes = []float64{-1} }, "anchor size 0"},
		{"NaN size", func(c *Config) { c.Anchors.Sizes = []float64{math.NaN()} }, "anchor size 0"},
		{"zero ratio width", func(c *Config) { c.Anchors.Ratios = []Ratio{{W: 0, H: 1}} }, "anchor ratio 0"},
		{"negative ratio height", func(c *Config) { c.Anchors.Ratios = []Ratio{{W: 1, H: 1}, {W: 1, H: -2}} }, "anchor ratio 1"},
		{"zero stride", func(c *Config) { c.Stride = 0 }, "stride"},
		{"negative stride", func(c *Config) { c.Stride = -16 }, "stride"},
		{"min equals max", func(c *Config) { c.MinOverlap, c.MaxOverlap = 0.5, 0.5 }, "overlap thresholds"},
		{"min above max", func(c *Config) { c.MinOverlap, c.MaxOverlap = 0.8, 0.7 }, "overlap thresholds"},
		{"negative min", func(c *Config) { c.MinOverlap = -0.1 }, "overlap thresholds"},
		{"max above one", func(c *Config) { c.MaxOverlap = 1.5 }, "overlap thresholds"},
		{"NaN threshold", func(c *Config) { c.MinOverlap = math.NaN() }, "overlap thresholds"},
		{"zero region cap", func(c *Config) { c.RegionCap = 0 }, "region cap"},
		{"negative regression scale", func(c *Config) { c.RegressionScale = -4 }, "regression scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ThresholdExtremesAccepted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinOverlap, cfg.MaxOverlap = 0, 1
	assert.NoError(t, cfg.Validate())
}

func TestCalculate_RejectsBeforeMatching(t *testing.T) {
	ann := annotate(gt("car", 8, 8, 40, 40))

	tests := []struct {
		name    string
		ann     dataset.Annotation
		resized images.Size
		cfg     func() Config
	}{
		{"invalid config", ann, smallSize, func() Config { c := smallConfig(); c.RegionCap = -1; return c }},
		{"zero original width", dataset.Annotation{Width: 0, Height: 64}, smallSize, smallConfig},
		{"negative original height", dataset.Annotation{Width: 64, Height: -5}, smallSize, smallConfig},
		{"zero resized size", ann, images.Size{}, smallConfig},
		{"resized below stride", ann, images.Size{Width: 15, Height: 64}, smallConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := Calculate(tt.ann, tt.resized, tt.cfg(), NewSource(1, 0))
			assert.Nil(t, targets)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestCalculate_RequiresSource(t *testing.T) {
	_, err := Calculate(annotate(), smallSize, smallConfig(), nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
