// Package ranking holds the pure ordering rules for the rate tab and the
// results view. Nothing here mutates its input or touches a store.
package ranking

import (
	"sort"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

// collators are not safe for concurrent use, so build one per sort.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}

// RateOrder orders proposals for the rate tab: proposals the selected person
// has not positively rated come first, rated ones last, each half
// alphabetical by title. With no selected person (uuid.Nil) the whole list is
// alphabetical. Idempotent; the input slice is left untouched.
func RateOrder(proposals []*model.Proposal, selected uuid.UUID) []*model.Proposal {
	out := make([]*model.Proposal, len(proposals))
	copy(out, proposals)

	c := newCollator()
	if selected == uuid.Nil {
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Title, out[j].Title) < 0
		})
		return out
	}

	rated := func(p *model.Proposal) bool {
		r, ok := p.Ratings[selected]
		return ok && r.Score > 0
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rated(out[i]), rated(out[j])
		if ri != rj {
			return !ri
		}
		return c.CompareString(out[i].Title, out[j].Title) < 0
	})
	return out
}

// RankMovies computes the results ranking. A proposal qualifies only when its
// proposer is present and at least one present person other than the proposer
// has rated it positively. The average and vote count cover positive ratings
// from present people only (the proposer's own included). Sorted descending
// by average; ties keep encounter order.
func RankMovies(proposals []*model.Proposal, people []model.Person) []model.RankedMovie {
	present := make(map[uuid.UUID]bool, len(people))
	for _, p := range people {
		if p.IsPresent {
			present[p.ID] = true
		}
	}

	ranked := make([]model.RankedMovie, 0, len(proposals))
	for _, prop := range proposals {
		if !present[prop.PersonID] {
			continue
		}

		var sum, total int
		others := false
		for personID, r := range prop.Ratings {
			if r.Score <= 0 || !present[personID] {
				continue
			}
			sum += r.Score
			total++
			if personID != prop.PersonID {
				others = true
			}
		}
		if !others {
			continue
		}

		ranked = append(ranked, model.RankedMovie{
			Proposal: prop,
			Average:  float64(sum) / float64(total),
			Total:    total,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Average > ranked[j].Average
	})
	return ranked
}

// PresentPeople filters the roster down to people marked present, keeping
// order.
func PresentPeople(people []model.Person) []model.Person {
	out := make([]model.Person, 0, len(people))
	for _, p := range people {
		if p.IsPresent {
			out = append(out, p)
		}
	}
	return out
}
