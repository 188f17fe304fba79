package inventory

import (
	"sort"
	"time"

	"pharmapos/internal/core/id"
)

// Allocation assigns part of a requested quantity to one batch.
type Allocation struct {
	Batch    Batch
	Quantity int64
}

// AllocationResult is the outcome of allocating a requested quantity.
// Shortfall > 0 means available stock could not cover the request;
// callers treat that as a normal insufficient-stock outcome, not a fault.
type AllocationResult struct {
	Allocations []Allocation
	Total       int64
	Shortfall   int64
}

// FullyAllocated reports whether the whole requested quantity was covered.
func (r AllocationResult) FullyAllocated() bool {
	return r.Shortfall == 0
}

// RankFEFO filters batches down to those able to supply stock and orders
// them first-expired-first-out: expiry ascending, batches without expiry
// last. Ties on identical expiry break by batch creation order (earliest
// first) so repeated calls on unchanged data pick the same batch.
func RankFEFO(batches []Batch, now time.Time) []Batch {
	ranked := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Available(now) {
			ranked = append(ranked, b)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ei, ej := ranked[i].ExpireDate, ranked[j].ExpireDate
		switch {
		case ei == nil && ej == nil:
			return fefoTieBreak(ranked[i], ranked[j])
		case ei == nil:
			return false
		case ej == nil:
			return true
		case ei.Equal(*ej):
			return fefoTieBreak(ranked[i], ranked[j])
		default:
			return ei.Before(*ej)
		}
	})

	return ranked
}

func fefoTieBreak(a, b Batch) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	// UUIDv7 ids are time-ordered; comparing them keeps the order stable
	// even for batches created within the same clock tick.
	return a.ID.String() < b.ID.String()
}

// Allocate covers the requested quantity from batches in FEFO order,
// splitting across batches when the first batch cannot cover it alone.
func Allocate(batches []Batch, quantity int64, now time.Time) AllocationResult {
	result := AllocationResult{}
	remaining := quantity

	for _, b := range RankFEFO(batches, now) {
		if remaining <= 0 {
			break
		}
		take := remaining
		if b.Quantity < take {
			take = b.Quantity
		}
		result.Allocations = append(result.Allocations, Allocation{Batch: b, Quantity: take})
		result.Total += take
		remaining -= take
	}

	result.Shortfall = remaining
	return result
}

// AllocateFromBatch honors an explicit batch override. The override is never
// split: the chosen batch must cover the full quantity, otherwise the caller
// falls back to FEFO selection (ok=false).
func AllocateFromBatch(batches []Batch, batchID id.ID, quantity int64, now time.Time) (AllocationResult, bool) {
	for _, b := range batches {
		if b.ID != batchID {
			continue
		}
		if !b.Available(now) || b.Quantity < quantity {
			return AllocationResult{Shortfall: quantity}, false
		}
		return AllocationResult{
			Allocations: []Allocation{{Batch: b, Quantity: quantity}},
			Total:       quantity,
		}, true
	}
	return AllocationResult{Shortfall: quantity}, false
}
