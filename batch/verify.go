package batch

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-rpn/models/rpn"
)

// ErrCoverage reports targets from which fewer boxes decode than were covered.
var ErrCoverage = errors.New("decoded targets do not cover the ground truth")

// Verify wraps next with a check that decodes each image's targets and counts
// the boxes left after non-maximum suppression at iouThreshold.
//
// Overlapping ground-truth boxes may merge under suppression, so a shortfall
// is logged as a warning; strict turns it into ErrCoverage.
func Verify(cfg rpn.Config, iouThreshold float64, strict bool, log logrus.FieldLogger, next Sink) Sink {
	return func(ctx context.Context, res Result) error {
		recovered := len(rpn.RecoverBoxes(res.Targets, cfg, iouThreshold))
		covered := res.Targets.Stats.Boxes - res.Targets.Stats.Unmatched

		if recovered < covered {
			if strict {
				return errors.Wrapf(ErrCoverage, "recovered %d of %d boxes", recovered, covered)
			}
			if log != nil {
				log.WithFields(logrus.Fields{
					"image":     res.Annotation.Path,
					"recovered": recovered,
					"covered":   covered,
				}).Warn("decoded targets recover fewer boxes than covered")
			}
		}

		if next == nil {
			return nil
		}
		return next(ctx, res)
	}
}
