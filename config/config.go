// Package config - File and environment configuration for target generation runs.
package config

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-rpn/dataset"
	"github.com/nvr-ai/go-rpn/images"
	"github.com/nvr-ai/go-rpn/models/rpn"
)

// Environment variables that override file settings.
const (
	EnvConfig      = "RPN_CONFIG"
	EnvSeed        = "RPN_SEED"
	EnvWorkers     = "RPN_WORKERS"
	EnvAnnotations = "RPN_ANNOTATIONS"
	EnvOutput      = "RPN_OUTPUT"
)

// ResizeConfig decides the network input size of each image.
type ResizeConfig struct {
	// Width and Height, when both set, give a fixed input size.
	Width  int `json:"width,omitempty"  yaml:"width,omitempty"`
	Height int `json:"height,omitempty" yaml:"height,omitempty"`
	// MinSide scales the shorter image side to this length, keeping the aspect ratio.
	MinSide int `json:"min_side,omitempty" yaml:"min_side,omitempty"`
}

// Target returns the resized dimensions for an image.
func (r ResizeConfig) Target(ann dataset.Annotation) images.Size {
	if r.Width > 0 && r.Height > 0 {
		return images.Size{Width: r.Width, Height: r.Height}
	}
	return images.ResizeDimensions(ann.Width, ann.Height, r.MinSide)
}

// BatchConfig controls a multi-image run.
type BatchConfig struct {
	// Seed is the batch seed every per-image random stream derives from.
	Seed uint64 `json:"seed" yaml:"seed"`
	// Workers bounds the number of images labeled concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// Annotations is an annotation file or a directory of them.
	Annotations string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	// OutputDir receives the target tensors and the run summary.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	// Verify decodes every image's targets and compares the recovered boxes with the covered ones.
	Verify VerifyConfig `json:"verify" yaml:"verify"`
}

// VerifyConfig controls the decode check run after labeling.
type VerifyConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// IoUThreshold is the suppression overlap used when decoding.
	IoUThreshold float64 `json:"iou_threshold" yaml:"iou_threshold"`
	// Strict fails the run on a shortfall instead of logging it.
	Strict bool `json:"strict" yaml:"strict"`
}

// Config is the complete configuration of a labeling run.
type Config struct {
	RPN    rpn.Config   `json:"rpn"    yaml:"rpn"`
	Resize ResizeConfig `json:"resize" yaml:"resize"`
	Batch  BatchConfig  `json:"batch"  yaml:"batch"`
}

// DefaultConfig returns the default run configuration.
//
// Returns:
//   - *Config: rpn.DefaultConfig anchors, 600 pixel shorter side, one worker per CPU.
func DefaultConfig() *Config {
	return &Config{
		RPN:    rpn.DefaultConfig(),
		Resize: ResizeConfig{MinSide: 600},
		Batch: BatchConfig{
			Seed:      1,
			Workers:   runtime.NumCPU(),
			OutputDir: "./rpn_targets",
			Verify:    VerifyConfig{IoUThreshold: 0.5},
		},
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if err := c.RPN.Validate(); err != nil {
		return err
	}
	fixed := c.Resize.Width > 0 && c.Resize.Height > 0
	if !fixed && c.Resize.MinSide <= 0 {
		return errors.Wrap(rpn.ErrInvalidConfig, "resize needs width and height or a positive min_side")
	}
	if c.Resize.Width < 0 || c.Resize.Height < 0 {
		return errors.Wrapf(rpn.ErrInvalidConfig, "resize %dx%d must not be negative", c.Resize.Width, c.Resize.Height)
	}
	if c.Batch.Workers <= 0 {
		return errors.Wrapf(rpn.ErrInvalidConfig, "workers %d must be positive", c.Batch.Workers)
	}
	if v := c.Batch.Verify.IoUThreshold; c.Batch.Verify.Enabled && !(v > 0 && v <= 1) {
		return errors.Wrapf(rpn.ErrInvalidConfig, "verify iou_threshold %v must be in (0, 1]", v)
	}
	return nil
}

// Load reads a configuration file on top of DefaultConfig.
//
// YAML is used for ".yaml" and ".yml" files, JSON for ".json". Settings missing
// from the file keep their default values.
//
// Arguments:
//   - path: The configuration file path.
//
// Returns:
//   - *Config: The merged configuration.
//   - error: Error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", path)
	}

	return cfg, nil
}

// Save writes the configuration, choosing the format from the file extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return errors.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// LoadEnv loads .env files into the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "failed to load env file %s", f)
		}
	}
	return nil
}

// ApplyEnv overrides batch settings with the RPN_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvSeed)
		}
		c.Batch.Seed = seed
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvWorkers)
		}
		c.Batch.Workers = workers
	}
	if v, ok := os.LookupEnv(EnvAnnotations); ok {
		c.Batch.Annotations = v
	}
	if v, ok := os.LookupEnv(EnvOutput); ok {
		c.Batch.OutputDir = v
	}
	return nil
}
