package ranking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

func person(name string, present bool) model.Person {
	return model.Person{ID: uuid.New(), Name: name, IsPresent: present}
}

func proposal(title string, proposer model.Person) *model.Proposal {
	return &model.Proposal{
		ID:       uuid.New(),
		PersonID: proposer.ID,
		Proposer: proposer.Name,
		Title:    title,
		Ratings:  make(map[uuid.UUID]model.Rating),
	}
}

func rate(p *model.Proposal, by model.Person, score int) {
	p.Ratings[by.ID] = model.Rating{
		ID:         uuid.New(),
		ProposalID: p.ID,
		PersonID:   by.ID,
		Score:      score,
	}
}

func titles(ps []*model.Proposal) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}

func TestRateOrder(t *testing.T) {
	alice := person("Alice", true)
	bob := person("Bob", true)

	dune := proposal("Dune", alice)
	alien := proposal("Alien", alice)
	zodiac := proposal("Zodiac", bob)
	heat := proposal("Heat", bob)

	rate(dune, bob, 4)
	rate(alien, bob, 2)

	proposals := []*model.Proposal{zodiac, dune, heat, alien}

	t.Run("unrated first, both halves alphabetical", func(t *testing.T) {
		got := RateOrder(proposals, bob.ID)
		assert.Equal(t, []string{"Heat", "Zodiac", "Alien", "Dune"}, titles(got))
	})

	t.Run("no selected person means plain alphabetical", func(t *testing.T) {
		got := RateOrder(proposals, uuid.Nil)
		assert.Equal(t, []string{"Alien", "Dune", "Heat", "Zodiac"}, titles(got))
	})

	t.Run("idempotent and input untouched", func(t *testing.T) {
		first := RateOrder(proposals, bob.ID)
		second := RateOrder(proposals, bob.ID)
		assert.Equal(t, titles(first), titles(second))
		assert.Equal(t, []string{"Zodiac", "Dune", "Heat", "Alien"}, titles(proposals))
	})

	t.Run("every unrated proposal precedes every rated one", func(t *testing.T) {
		got := RateOrder(proposals, bob.ID)
		lastUnrated, firstRated := -1, len(got)
		for i, p := range got {
			if r, ok := p.Ratings[bob.ID]; ok && r.Score > 0 {
				if i < firstRated {
					firstRated = i
				}
			} else if i > lastUnrated {
				lastUnrated = i
			}
		}
		assert.Less(t, lastUnrated, firstRated)
	})
}

func TestRankMovies(t *testing.T) {
	t.Run("proposer self-rating alone never surfaces", func(t *testing.T) {
		alice := person("Alice", true)
		dune := proposal("Dune", alice)
		rate(dune, alice, 5)

		got := RankMovies([]*model.Proposal{dune}, []model.Person{alice})
		assert.Empty(t, got)
	})

	t.Run("absent raters are excluded from numerator and denominator", func(t *testing.T) {
		alice := person("Alice", true)
		bob := person("Bob", true)
		carol := person("Carol", false)

		dune := proposal("Dune", alice)
		rate(dune, alice, 5)
		rate(dune, bob, 3)
		rate(dune, carol, 1)

		got := RankMovies([]*model.Proposal{dune}, []model.Person{alice, bob, carol})
		require.Len(t, got, 1)
		assert.InDelta(t, 4.0, got[0].Average, 1e-9)
		assert.Equal(t, 2, got[0].Total)
	})

	t.Run("removing the only non-proposer vote drops the movie", func(t *testing.T) {
		alice := person("Alice", true)
		bob := person("Bob", true)

		dune := proposal("Dune", alice)
		rate(dune, alice, 5)
		rate(dune, bob, 3)

		require.Len(t, RankMovies([]*model.Proposal{dune}, []model.Person{alice, bob}), 1)

		delete(dune.Ratings, bob.ID)
		assert.Empty(t, RankMovies([]*model.Proposal{dune}, []model.Person{alice, bob}))
	})

	t.Run("proposer going absent removes their movies", func(t *testing.T) {
		alice := person("Alice", true)
		bob := person("Bob", true)

		dune := proposal("Dune", alice)
		rate(dune, alice, 5)
		rate(dune, bob, 5)

		require.Len(t, RankMovies([]*model.Proposal{dune}, []model.Person{alice, bob}), 1)

		alice.IsPresent = false
		assert.Empty(t, RankMovies([]*model.Proposal{dune}, []model.Person{alice, bob}))
	})

	t.Run("descending by average, ties keep encounter order", func(t *testing.T) {
		alice := person("Alice", true)
		bob := person("Bob", true)

		low := proposal("Alpha", alice)
		rate(low, bob, 2)
		high := proposal("Beta", alice)
		rate(high, bob, 5)
		tied := proposal("Gamma", bob)
		rate(tied, alice, 2)

		got := RankMovies([]*model.Proposal{low, high, tied}, []model.Person{alice, bob})
		require.Len(t, got, 3)
		assert.Equal(t, "Beta", got[0].Proposal.Title)
		assert.Equal(t, "Alpha", got[1].Proposal.Title)
		assert.Equal(t, "Gamma", got[2].Proposal.Title)
	})
}

func TestPresentPeople(t *testing.T) {
	alice := person("Alice", true)
	bob := person("Bob", false)
	carol := person("Carol", true)

	got := PresentPeople([]model.Person{alice, bob, carol})
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "Carol", got[1].Name)
}

func TestRateTab(t *testing.T) {
	alice := person("Alice", true)
	bob := person("Bob", true)

	dune := proposal("Dune", alice)
	alien := proposal("Alien", alice)
	heat := proposal("Heat", bob)

	proposals := []*model.Proposal{dune, alien, heat}

	t.Run("hold keeps the order across a rating save", func(t *testing.T) {
		tab := &RateTab{}
		before := titles(tab.Reorder(proposals, bob.ID))

		// Bob rates the first movie in the list; a fresh sort would move it.
		rate(proposals[0], bob, 4)
		tab.Hold()

		assert.Equal(t, before, titles(tab.View(proposals, bob.ID)))
		delete(proposals[0].Ratings, bob.ID)
	})

	t.Run("next explicit reorder clears the hold", func(t *testing.T) {
		tab := &RateTab{}
		tab.Reorder(proposals, bob.ID)
		rate(alien, bob, 3)
		tab.Hold()

		got := tab.Reorder(proposals, bob.ID)
		assert.Equal(t, []string{"Dune", "Heat", "Alien"}, titles(got))

		// Hold is gone: View resorts again.
		rate(dune, bob, 5)
		assert.Equal(t, []string{"Heat", "Alien", "Dune"}, titles(tab.View(proposals, bob.ID)))
		delete(alien.Ratings, bob.ID)
		delete(dune.Ratings, bob.ID)
	})

	t.Run("held view drops vanished rows and appends new ones", func(t *testing.T) {
		tab := &RateTab{}
		tab.Reorder(proposals, uuid.Nil)
		tab.Hold()

		zodiac := proposal("Zodiac", bob)
		got := tab.View([]*model.Proposal{heat, zodiac, dune}, uuid.Nil)
		assert.Equal(t, []string{"Dune", "Heat", "Zodiac"}, titles(got))
	})
}
