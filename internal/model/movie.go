package model

import "time"

// Movie is a document in the `movies` collection.
//
// Fields:
//
//	Genre     – ordered genre labels; related-movie lookups use the first two.
//	Runtime   – minutes.
//	Showtimes – optional; when present a booking's time must be one of them.
type Movie struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`               // movies.title
	Description string    `json:"description"`         // movies.description
	PosterURL   string    `json:"posterUrl"`           // movies.posterUrl
	MovieBg     string    `json:"movieBg,omitempty"`   // movies.movieBg
	Genre       []string  `json:"genre"`               // movies.genre
	Rating      string    `json:"rating"`              // movies.rating
	Runtime     int       `json:"runtime"`             // movies.runtime
	ReleaseYear int       `json:"releaseYear"`         // movies.releaseYear
	TicketPrice float64   `json:"ticketPrice"`         // movies.ticketPrice
	Showtimes   []string  `json:"showtimes,omitempty"` // movies.showtimes
	CreatedAt   time.Time `json:"createdAt"`           // movies.createdAt
}

// MovieFromDoc decodes a stored movie. Malformed fields decode to zero values.
func MovieFromDoc(id string, data map[string]any) Movie {
	return Movie{
		ID:          id,
		Title:       str(data, "title"),
		Description: str(data, "description"),
		PosterURL:   str(data, "posterUrl"),
		MovieBg:     str(data, "movieBg"),
		Genre:       strList(data, "genre"),
		Rating:      str(data, "rating"),
		Runtime:     integer(data, "runtime"),
		ReleaseYear: integer(data, "releaseYear"),
		TicketPrice: num(data, "ticketPrice"),
		Showtimes:   strList(data, "showtimes"),
		CreatedAt:   timestamp(data, "createdAt"),
	}
}

// HasShowtime reports whether t is one of the movie's showtimes. A movie
// without showtimes accepts any time label.
func (m Movie) HasShowtime(t string) bool {
	if len(m.Showtimes) == 0 {
		return true
	}
	for _, s := range m.Showtimes {
		if s == t {
			return true
		}
	}
	return false
}
