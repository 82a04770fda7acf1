// Package ordering implements the fractional-index engine behind
// drag-and-drop reordering: computing a new order key for a single moved
// item and reclassifying its date bucket on cross-bucket moves.
package ordering

import (
	"errors"
	"math"
	"math/rand"

	"github.com/tada-app/tada/internal/types"
)

// ErrStaleReference means a drag event referenced an item that is no
// longer present (the UI raced a deletion). Callers treat it as a no-op.
var ErrStaleReference = errors.New("stale reference")

// Gap is the spacing used when appending at either end of a view.
const Gap = 1000

// jitterEpsilon bounds the random offset used when midpoint precision is
// exhausted. Small enough to stay below any neighbor at normal spacing.
const jitterEpsilon = 1e-6

// MoveRequest describes a completed drag: the visible item ids after the
// array move, the moved item's id, and the current order of every visible
// item. Only the moved item's order will change.
type MoveRequest struct {
	Visible []string
	MovedID string
	Orders  map[string]float64
}

// Assign computes the moved item's new fractional order. The result ranks
// the item at its slot in Visible without touching any other item.
// Returns ErrStaleReference when the moved id or a referenced neighbor has
// disappeared from the order map.
func Assign(req MoveRequest, now types.Millis) (float64, error) {
	idx := -1
	for i, id := range req.Visible {
		if id == req.MovedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, ErrStaleReference
	}

	var prev, next *float64
	if idx > 0 {
		v, ok := req.Orders[req.Visible[idx-1]]
		if !ok {
			return 0, ErrStaleReference
		}
		prev = &v
	}
	if idx < len(req.Visible)-1 {
		v, ok := req.Orders[req.Visible[idx+1]]
		if !ok {
			return 0, ErrStaleReference
		}
		next = &v
	}

	return Between(prev, next, now), nil
}

// Between computes an order value strictly after prev and, when possible,
// strictly before next. Either bound may be nil (ends of the view).
//
// The midpoint can collapse onto a bound after many successive insertions
// at the same point; when that happens a small random offset above prev is
// used instead, trading exact placement for availability.
func Between(prev, next *float64, now types.Millis) float64 {
	var v float64
	switch {
	case prev == nil && next == nil:
		v = float64(now) - Gap
	case prev == nil:
		v = *next - Gap
	case next == nil:
		v = *prev + Gap
	default:
		v = *prev + (*next-*prev)/2
		if !(v > *prev && v < *next) {
			v = jitterAbove(*prev)
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = float64(now)
	}
	return v
}

// jitterAbove returns a value strictly greater than base. The epsilon is
// widened once if rounding collapses the first attempt back onto base.
func jitterAbove(base float64) float64 {
	v := base + rand.Float64()*jitterEpsilon
	if v <= base {
		v = base + jitterEpsilon
	}
	if v <= base {
		// base is large enough that even epsilon rounds away; step to the
		// next representable float.
		v = math.Nextafter(base, math.Inf(1))
	}
	return v
}

// AppendOrder is the order key for a task added at the end of a view: the
// current wall clock in millis, matching the original append behavior.
func AppendOrder(now types.Millis) float64 {
	return float64(now)
}
