package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Output file suffixes written by NpyWriter.
const (
	ClassificationSuffix = ".cls.npy"
	RegressionSuffix     = ".regr.npy"
)

// TargetName returns the file stem for image index i, e.g. "00003_street".
func TargetName(i int, path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "image"
	}
	return fmt.Sprintf("%05d_%s", i, stem)
}

// NpyWriter returns a Sink that stores both target tensors of every image as
// NumPy files in dir.
//
// Arguments:
//   - dir: The output directory; created if missing.
//
// Returns:
//   - Sink: A sink safe for concurrent use.
//   - error: Error if dir cannot be created.
func NpyWriter(dir string) (Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	return func(_ context.Context, res Result) error {
		name := TargetName(res.Index, res.Annotation.Path)
		if err := writeNpy(filepath.Join(dir, name+ClassificationSuffix), res.Targets.Classification); err != nil {
			return err
		}
		return writeNpy(filepath.Join(dir, name+RegressionSuffix), res.Targets.Regression)
	}, nil
}

func writeNpy(path string, t *tensor.Dense) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create target file")
	}
	defer closeFile(f, path, &err)

	if err := t.WriteNpy(f); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// closeFile closes a file being written and reports the close error through
// err unless an earlier error is already set.
func closeFile(c io.Closer, path string, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = errors.Wrapf(cerr, "failed to close %s", path)
	}
}

// ReadNpy loads a tensor written by NpyWriter.
func ReadNpy(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open target file")
	}
	defer f.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(f); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return t, nil
}

// WriteSummary saves summary.json and a per-image summary.csv in dir.
func WriteSummary(dir string, s Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal summary")
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.json"), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write summary file")
	}

	return writeSummaryCSV(filepath.Join(dir, "summary.csv"), s)
}

func writeSummaryCSV(path string, s Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create summary CSV")
	}
	defer closeFile(f, path, &err)

	w := csv.NewWriter(f)
	_ = w.Write([]string{"index", "path", "resized", "boxes", "anchors", "positive", "negative", "neutral", "fallback", "unmatched", "sampled"})
	for _, img := range s.Images {
		st := img.Stats
		_ = w.Write([]string{
			strconv.Itoa(img.Index),
			img.Path,
			img.Resized.String(),
			strconv.Itoa(st.Boxes),
			strconv.Itoa(st.Anchors),
			strconv.Itoa(st.Positive),
			strconv.Itoa(st.Negative),
			strconv.Itoa(st.Neutral),
			strconv.Itoa(st.Fallback),
			strconv.Itoa(st.Unmatched),
			strconv.Itoa(st.Sampled),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to write summary CSV")
	}
	return nil
}
