package ws_session

import (
	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
	"github.com/CarciofiVolanti/movie-tally-time/internal/ranking"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

type PersonDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsPresent bool      `json:"is_present"`
	Movies    []string  `json:"movies"`
}

type MetaDTO struct {
	Poster         string `json:"poster,omitempty"`
	Year           string `json:"year,omitempty"`
	Genre          string `json:"genre,omitempty"`
	Runtime        string `json:"runtime,omitempty"`
	Director       string `json:"director,omitempty"`
	Plot           string `json:"plot,omitempty"`
	ExternalRating string `json:"external_rating,omitempty"`
	ExternalID     string `json:"external_id,omitempty"`
}

type RatingDTO struct {
	PersonID uuid.UUID `json:"person_id"`
	Score    int       `json:"score"`
}

type CommentDTO struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type ProposalDTO struct {
	ID       uuid.UUID   `json:"id"`
	PersonID uuid.UUID   `json:"person_id"`
	Proposer string      `json:"proposer"`
	Title    string      `json:"title"`
	Meta     MetaDTO     `json:"meta"`
	Ratings  []RatingDTO `json:"ratings"`
	Comment  *CommentDTO `json:"comment,omitempty"`
}

type RankedDTO struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	Title      string    `json:"title"`
	Average    float64   `json:"average"`
	Total      int       `json:"total"`
}

// SnapshotDTO is the full pre-watch state pushed to a viewer. RateOrder is
// the only per-viewer part: proposal ids in this viewer's rate-tab order.
type SnapshotDTO struct {
	People     []PersonDTO             `json:"people"`
	Proposals  []ProposalDTO           `json:"proposals"`
	Favourites map[uuid.UUID]uuid.UUID `json:"favourites"`
	Ranked     []RankedDTO             `json:"ranked"`
	RateOrder  []uuid.UUID             `json:"rate_order"`
}

func ConvertMeta(meta model.MovieMeta) MetaDTO {
	return MetaDTO{
		Poster:         meta.Poster,
		Year:           meta.Year,
		Genre:          meta.Genre,
		Runtime:        meta.Runtime,
		Director:       meta.Director,
		Plot:           meta.Plot,
		ExternalRating: meta.ExternalRating,
		ExternalID:     meta.ExternalID,
	}
}

func ConvertProposal(p *model.Proposal) ProposalDTO {
	dto := ProposalDTO{
		ID:       p.ID,
		PersonID: p.PersonID,
		Proposer: p.Proposer,
		Title:    p.Title,
		Meta:     ConvertMeta(p.Meta),
		Ratings:  make([]RatingDTO, 0, len(p.Ratings)),
	}
	for personID, r := range p.Ratings {
		dto.Ratings = append(dto.Ratings, RatingDTO{PersonID: personID, Score: r.Score})
	}
	if p.Comment != nil {
		dto.Comment = &CommentDTO{Author: p.Comment.Author, Text: p.Comment.Text}
	}
	return dto
}

func ConvertPeople(people []model.Person) []PersonDTO {
	out := make([]PersonDTO, len(people))
	for i, p := range people {
		out[i] = PersonDTO{ID: p.ID, Name: p.Name, IsPresent: p.IsPresent, Movies: p.Movies}
	}
	return out
}

func ConvertRanked(ranked []model.RankedMovie) []RankedDTO {
	out := make([]RankedDTO, len(ranked))
	for i, r := range ranked {
		out[i] = RankedDTO{
			ProposalID: r.Proposal.ID,
			Title:      r.Proposal.Title,
			Average:    r.Average,
			Total:      r.Total,
		}
	}
	return out
}

// BuildSnapshot assembles the state push for one viewer. A caller without a
// rate tab of its own can pass nil and gets a fresh unrated-first ordering.
func BuildSnapshot(store *usecase_session.Store, tab *ranking.RateTab, personID uuid.UUID) SnapshotDTO {
	proposals := store.Proposals()

	var ordered []*model.Proposal
	if tab != nil {
		ordered = tab.View(proposals, personID)
	} else {
		ordered = ranking.RateOrder(proposals, personID)
	}

	dto := SnapshotDTO{
		People:     ConvertPeople(store.People()),
		Proposals:  make([]ProposalDTO, len(proposals)),
		Favourites: store.Favourites(),
		Ranked:     ConvertRanked(store.RankedMovies()),
		RateOrder:  make([]uuid.UUID, len(ordered)),
	}
	for i, p := range proposals {
		dto.Proposals[i] = ConvertProposal(p)
	}
	for i, p := range ordered {
		dto.RateOrder[i] = p.ID
	}
	return dto
}
