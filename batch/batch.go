// Package batch - Parallel target generation over many images.
package batch

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-rpn/config"
	"github.com/nvr-ai/go-rpn/dataset"
	"github.com/nvr-ai/go-rpn/images"
	"github.com/nvr-ai/go-rpn/models/rpn"
)

// Result is the outcome of labeling one image.
type Result struct {
	// Index is the position of the image in the batch; it selects the random stream.
	Index      int
	Annotation dataset.Annotation
	Resized    images.Size
	Targets    *rpn.Targets
}

// Sink receives every result. It is called from several goroutines at once.
type Sink func(ctx context.Context, res Result) error

// ImageSummary is the per-image part of a Summary.
type ImageSummary struct {
	Index    int           `json:"index"`
	Path     string        `json:"path"`
	Resized  images.Size   `json:"resized"`
	Stats    rpn.Stats     `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// Summary aggregates a batch run.
type Summary struct {
	Seed     uint64         `json:"seed"`
	Images   []ImageSummary `json:"images"`
	Totals   rpn.Stats      `json:"totals"`
	Duration time.Duration  `json:"duration"`
	Metrics  Metrics        `json:"metrics"`
}

// Runner labels batches of images with bounded concurrency.
type Runner struct {
	rpn     rpn.Config
	resize  config.ResizeConfig
	seed    uint64
	workers int
	log     logrus.FieldLogger
}

// NewRunner creates a runner from a validated configuration.
//
// Arguments:
//   - cfg: The run configuration; its RPN, Resize and Batch sections are used.
//   - log: The logger for per-image events. Nil discards them.
//
// Returns:
//   - *Runner: The runner.
//   - error: The validation error if cfg is rejected.
func NewRunner(cfg *config.Config, log logrus.FieldLogger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Runner{
		rpn:     cfg.RPN,
		resize:  cfg.Resize,
		seed:    cfg.Batch.Seed,
		workers: cfg.Batch.Workers,
		log:     log,
	}, nil
}

// Run labels every annotation and hands the results to sink.
//
// Image i always draws from rpn.NewSource(seed, i), so the targets are the
// same for any worker count and scheduling order. The first error, from
// labeling or from sink, cancels the images not yet started. A cancelled ctx
// stops the run the same way.
//
// Arguments:
//   - ctx: Context for cancellation between images.
//   - anns: The images to label.
//   - sink: Receives each result; may be nil.
//
// Returns:
//   - Summary: Per-image and total statistics of the images labeled.
//   - error: The first failure, wrapped with the image index and path.
func (r *Runner) Run(ctx context.Context, anns []dataset.Annotation, sink Sink) (Summary, error) {
	start := time.Now()
	summaries := make([]ImageSummary, len(anns))
	done := make([]bool, len(anns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, ann := range anns {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			began := time.Now()
			resized := r.resize.Target(ann)
			targets, err := rpn.Calculate(ann, resized, r.rpn, rpn.NewSource(r.seed, uint64(i)))
			if err != nil {
				return errors.Wrapf(err, "image %d (%s)", i, ann.Path)
			}

			summaries[i] = ImageSummary{
				Index:    i,
				Path:     ann.Path,
				Resized:  resized,
				Stats:    targets.Stats,
				Duration: time.Since(began),
			}
			done[i] = true

			entry := r.log.WithFields(logrus.Fields{
				"image":     ann.Path,
				"index":     i,
				"positive":  targets.Stats.Positive,
				"negative":  targets.Stats.Negative,
				"neutral":   targets.Stats.Neutral,
				"fallback":  targets.Stats.Fallback,
				"unmatched": targets.Stats.Unmatched,
			})
			if targets.Stats.Unmatched > 0 {
				entry.Warn("ground-truth boxes left without anchors")
			} else {
				entry.Debug("labeled image")
			}

			if sink == nil {
				return nil
			}
			if err := sink(gctx, Result{Index: i, Annotation: ann, Resized: resized, Targets: targets}); err != nil {
				return errors.Wrapf(err, "image %d (%s)", i, ann.Path)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	summary := Summary{Seed: r.seed, Duration: time.Since(start)}
	for i, s := range summaries {
		if !done[i] {
			continue
		}
		summary.Images = append(summary.Images, s)
		summary.Totals = addStats(summary.Totals, s.Stats)
	}
	summary.Metrics = collectMetrics(r.workers, summary.Images, summary.Duration)

	r.log.WithFields(logrus.Fields{
		"images":    len(summary.Images),
		"positive":  summary.Totals.Positive,
		"negative":  summary.Totals.Negative,
		"unmatched": summary.Totals.Unmatched,
		"duration":  summary.Duration,
		"per_sec":   summary.Metrics.ImagesPerSecond,
	}).Info("batch finished")

	return summary, err
}

func addStats(a, b rpn.Stats) rpn.Stats {
	return rpn.Stats{
		Boxes:     a.Boxes + b.Boxes,
		Anchors:   a.Anchors + b.Anchors,
		Positive:  a.Positive + b.Positive,
		Negative:  a.Negative + b.Negative,
		Neutral:   a.Neutral + b.Neutral,
		Fallback:  a.Fallback + b.Fallback,
		Unmatched: a.Unmatched + b.Unmatched,
		Sampled:   a.Sampled + b.Sampled,
	}
}
