package ranking

import (
	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

// RateTab owns one viewer's rate-tab ordering. Sorting happens only at
// explicit trigger points (session load, person switch); right after the
// viewer saves a rating the order is held so the row they just touched does
// not jump away. The hold lasts until the next explicit Reorder.
//
// One RateTab per viewer; not safe for concurrent use.
type RateTab struct {
	order []uuid.UUID
	held  bool
}

// Reorder is the explicit trigger. It recomputes the ordering and clears any
// hold.
func (t *RateTab) Reorder(proposals []*model.Proposal, selected uuid.UUID) []*model.Proposal {
	t.held = false
	sorted := RateOrder(proposals, selected)
	t.order = make([]uuid.UUID, len(sorted))
	for i, p := range sorted {
		t.order[i] = p.ID
	}
	return sorted
}

// Hold freezes the current ordering. Called after a successful rating save.
func (t *RateTab) Hold() {
	t.held = true
}

// View returns proposals in the effective order: the frozen order while held
// (rows that have since disappeared drop out, new rows append at the end), a
// fresh sort otherwise.
func (t *RateTab) View(proposals []*model.Proposal, selected uuid.UUID) []*model.Proposal {
	if !t.held || t.order == nil {
		return t.Reorder(proposals, selected)
	}

	byID := make(map[uuid.UUID]*model.Proposal, len(proposals))
	for _, p := range proposals {
		byID[p.ID] = p
	}

	out := make([]*model.Proposal, 0, len(proposals))
	seen := make(map[uuid.UUID]bool, len(t.order))
	for _, id := range t.order {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			seen[id] = true
		}
	}
	for _, p := range proposals {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
}
