package postprocess

import (
	"math"
	"sort"
)

// candidate is a decoded box above the score threshold that has not been
// through non maximum suppression yet
type candidate struct {
	box   BoxRect
	prob  float32
	class int
}

// clampf restricts the value x to be within the range min and max
func clampf(val, min, max float32) float32 {
	return float32(math.Min(math.Max(float64(val), float64(min)), float64(max)))
}

// nms applies Non-Maximum Suppression per class.  Candidates are returned in
// descending probability order, any candidate overlapping a higher scoring
// one of the same class by more than threshold is dropped.  At most limit
// candidates are kept when limit is positive.
func nms(cands []candidate, threshold float32, limit int) []candidate {

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].prob > cands[j].prob
	})

	kept := make([]candidate, 0, len(cands))

next:
	for _, c := range cands {
		if limit > 0 && len(kept) >= limit {
			break
		}

		for _, k := range kept {
			if k.class == c.class && overlap(k.box, c.box) > threshold {
				continue next
			}
		}

		kept = append(kept, c)
	}

	return kept
}

// overlap works out the Intersection over Union (IoU) of two boxes treating
// the edges as inclusive pixels
func overlap(a, b BoxRect) float32 {

	w := math.Max(0, math.Min(float64(a.Right), float64(b.Right))-
		math.Max(float64(a.Left), float64(b.Left))+1)
	h := math.Max(0, math.Min(float64(a.Bottom), float64(b.Bottom))-
		math.Max(float64(a.Top), float64(b.Top))+1)
	inter := float32(w * h)

	union := (a.Width()+1)*(a.Height()+1) + (b.Width()+1)*(b.Height()+1) - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}
