package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
)

const (
	FeaturedLimit = 4
	RelatedLimit  = 4
	// relatedOverfetch covers the movie itself showing up in its own related query.
	relatedOverfetch = 1
)

// MovieInput carries the fields of a new movie.
type MovieInput struct {
	Title       string
	Description string
	PosterURL   string
	MovieBg     string
	Genre       []string
	Rating      string
	Runtime     int
	ReleaseYear int
	TicketPrice float64
	Showtimes   []string
}

// MoviePatch holds the fields of a partial update; nil fields are left alone.
type MoviePatch struct {
	Title       *string
	Description *string
	PosterURL   *string
	MovieBg     *string
	Genre       *[]string
	Rating      *string
	Runtime     *int
	ReleaseYear *int
	TicketPrice *float64
	Showtimes   *[]string
}

func (p MoviePatch) fields() map[string]any {
	f := map[string]any{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.PosterURL != nil {
		f["posterUrl"] = *p.PosterURL
	}
	if p.MovieBg != nil {
		f["movieBg"] = *p.MovieBg
	}
	if p.Genre != nil {
		f["genre"] = stringsToAny(*p.Genre)
	}
	if p.Rating != nil {
		f["rating"] = *p.Rating
	}
	if p.Runtime != nil {
		f["runtime"] = *p.Runtime
	}
	if p.ReleaseYear != nil {
		f["releaseYear"] = *p.ReleaseYear
	}
	if p.TicketPrice != nil {
		f["ticketPrice"] = *p.TicketPrice
	}
	if p.Showtimes != nil {
		f["showtimes"] = stringsToAny(*p.Showtimes)
	}
	return f
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// MovieRepo is catalog access over the movies collection.
type MovieRepo struct{ Store docstore.Store }

func NewMovieRepo(s docstore.Store) *MovieRepo { return &MovieRepo{Store: s} }

func (r *MovieRepo) query(ctx context.Context, q docstore.Query) ([]model.Movie, error) {
	docs, err := r.Store.Query(ctx, Movies, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Movie, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.MovieFromDoc(d.ID, d.Data))
	}
	return out, nil
}

// List scans the whole collection in store order.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	return r.query(ctx, docstore.Query{})
}

// Featured returns the newest movies.
func (r *MovieRepo) Featured(ctx context.Context) ([]model.Movie, error) {
	return r.query(ctx, docstore.Query{}.Order("createdAt", docstore.Desc).Take(FeaturedLimit))
}

func (r *MovieRepo) Get(ctx context.Context, id string) (model.Movie, error) {
	doc, err := r.Store.Get(ctx, Movies, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Movie{}, ErrMovieNotFound
	}
	if err != nil {
		return model.Movie{}, err
	}
	return model.MovieFromDoc(doc.ID, doc.Data), nil
}

func (r *MovieRepo) Create(ctx context.Context, in MovieInput) (model.Movie, error) {
	data := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"posterUrl":   in.PosterURL,
		"genre":       stringsToAny(in.Genre),
		"rating":      in.Rating,
		"runtime":     in.Runtime,
		"releaseYear": in.ReleaseYear,
		"ticketPrice": in.TicketPrice,
		"createdAt":   docstore.ServerTimestamp,
	}
	if in.MovieBg != "" {
		data["movieBg"] = in.MovieBg
	}
	if len(in.Showtimes) > 0 {
		data["showtimes"] = stringsToAny(in.Showtimes)
	}
	id, err := r.Store.Add(ctx, Movies, data)
	if err != nil {
		return model.Movie{}, fmt.Errorf("create movie: %w", err)
	}
	return r.Get(ctx, id)
}

// Update merges only the fields set in p and returns the stored result.
// Concurrent updates are last-write-wins per field.
func (r *MovieRepo) Update(ctx context.Context, id string, p MoviePatch) (model.Movie, error) {
	err := r.Store.Update(ctx, Movies, id, p.fields())
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Movie{}, ErrMovieNotFound
	}
	if err != nil {
		return model.Movie{}, fmt.Errorf("update movie %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

// Delete removes the movie without looking at bookings that reference it.
func (r *MovieRepo) Delete(ctx context.Context, id string) error {
	if err := r.Store.Delete(ctx, Movies, id); err != nil {
		return fmt.Errorf("delete movie %s: %w", id, err)
	}
	return nil
}

// Related returns up to RelatedLimit movies sharing one of the first two
// genres. The store cannot combine array-contains-any with an id
// inequality, so the movie itself is dropped after an overfetch.
func (r *MovieRepo) Related(ctx context.Context, movieID string, genres []string) ([]model.Movie, error) {
	if len(genres) == 0 {
		return []model.Movie{}, nil
	}
	if len(genres) > 2 {
		genres = genres[:2]
	}
	q := docstore.Query{}.
		Where("genre", docstore.OpArrayContainsAny, stringsToAny(genres)).
		Take(RelatedLimit + relatedOverfetch)
	movies, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Movie, 0, RelatedLimit)
	for _, m := range movies {
		if m.ID == movieID {
			continue
		}
		out = append(out, m)
		if len(out) == RelatedLimit {
			break
		}
	}
	return out, nil
}
