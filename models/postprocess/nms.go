// Package postprocess - Non-Maximum Suppression for decoded anchor proposals.
package postprocess

import (
	"sort"
	"sync"

	"github.com/nvr-ai/go-rpn/images"
)

// Proposal is a box decoded from one anchor cell.
type Proposal struct {
	// The decoded box in resized-image coordinates.
	Box images.Box
	// The ranking score; higher wins.
	Score float64
	// The anchor cell the box was decoded from.
	Row, Col, Type int
}

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float64 // Overlap above which the lower-scored proposal is dropped.
	NumWorkers   int     // Goroutines used for the IoU sweep; values below 2 run serially.
}

// ApplyGreedyNMS performs greedy Non-Maximum Suppression.
//
// Proposals are ranked by descending score; ties keep their input order.
// The input slice is not modified.
//
// Arguments:
//   - proposals: The candidate boxes.
//   - config: NMS configuration.
//
// Returns:
//   - The kept proposals, best first. If no proposals are provided, returns nil.
func ApplyGreedyNMS(proposals []Proposal, config *NMSConfig) []Proposal {
	n := len(proposals)
	if n == 0 {
		return nil
	}

	ranked := append([]Proposal(nil), proposals...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	used := make([]bool, n)
	kept := make([]Proposal, 0, n)
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		kept = append(kept, ranked[i])
		used[i] = true
		suppress(ranked, used, i, config)
	}

	return kept
}

// suppress marks every unused proposal after pivot that overlaps it too much.
// Workers own disjoint index ranges, so used needs no lock.
func suppress(ranked []Proposal, used []bool, pivot int, config *NMSConfig) {
	start := pivot + 1
	rest := len(ranked) - start
	workers := config.NumWorkers
	if workers < 2 || rest < 2*workers {
		sweep(ranked, used, pivot, start, len(ranked), config.IoUThreshold)
		return
	}

	chunk := (rest + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := start; lo < len(ranked); lo += chunk {
		hi := min(lo+chunk, len(ranked))
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			sweep(ranked, used, pivot, lo, hi, config.IoUThreshold)
		}(lo, hi)
	}
	wg.Wait()
}

func sweep(ranked []Proposal, used []bool, pivot, lo, hi int, threshold float64) {
	for j := lo; j < hi; j++ {
		if used[j] {
			continue
		}
		if images.CalculateIoU(ranked[pivot].Box, ranked[j].Box) > threshold {
			used[j] = true
		}
	}
}
