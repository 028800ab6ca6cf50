package handler_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/handler"
	"github.com/boxoffice/boxoffice/internal/identity"
	"github.com/boxoffice/boxoffice/internal/repository"
	"github.com/boxoffice/boxoffice/internal/router"
	"github.com/boxoffice/boxoffice/internal/validate"
)

type purgeCounter struct{ n int }

func (p *purgeCounter) Purge(context.Context) { p.n++ }

type app struct {
	e      *echo.Echo
	store  *docstore.Memory
	movies *repository.MovieRepo
	purged *purgeCounter
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newApp(t *testing.T) *app {
	t.Helper()
	store := docstore.NewMemory()
	auth := identity.NewAuthenticator(identity.Config{
		Secret:     "handler-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ResetTTL:   time.Hour,
		BcryptCost: 4,
	}, store, nil)

	movies := repository.NewMovieRepo(store)
	users := repository.NewUserRepo(store)
	bookings := repository.NewBookingRepo(store)
	agg := booking.NewAggregator(bookings, movies, users)
	creator := &booking.Creator{Movies: movies, Bookings: bookings}
	purged := &purgeCounter{}

	e := echo.New()
	e.Validator = validate.New()
	router.RegisterRoutes(e, store)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, users, time.Second), auth, passThrough)
	router.RegisterPublic(e, handler.NewCatalogHandler(movies, time.Second), passThrough)
	router.RegisterCustomer(e, handler.NewBookingHandler(agg, creator, time.Second), auth)
	router.RegisterAdmin(e, handler.NewAdminHandler(movies, users, agg, purged, time.Second), auth, users)

	return &app{e: e, store: store, movies: movies, purged: purged}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(bs))
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// register signs a user up and returns uid and access token.
func (a *app) register(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Ana", "email": email, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s identity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s.Principal.UID, s.AccessToken
}

func (a *app) movie(t *testing.T, title string, genres ...string) string {
	t.Helper()
	m, err := a.movies.Create(context.Background(), repository.MovieInput{
		Title:       title,
		Genre:       genres,
		TicketPrice: 12.5,
		Showtimes:   []string{"6:00 PM", "9:00 PM"},
	})
	require.NoError(t, err)
	return m.ID
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	_, token := a.register(t, "ana@example.com")

	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Ana", "email": "ANA@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode(t, rec)["name"])

	rec = a.do(t, http.MethodPatch, "/v1/me", token, map[string]any{"bio": "popcorn", "admin": true})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "popcorn", me["bio"])
	assert.Equal(t, false, me["admin"])

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/me", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		a.do(t, http.MethodPost, "/v1/auth/password-reset", "", map[string]any{"email": "ana@example.com"}).Code)
}

func TestRefreshAndLogout(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Ana", "email": "ana@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var s identity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": s.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated identity.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))

	// the old token is spent
	assert.Equal(t, http.StatusUnauthorized,
		a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": s.RefreshToken}).Code)

	assert.Equal(t, http.StatusNoContent,
		a.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]any{"refresh_token": rotated.RefreshToken}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": rotated.RefreshToken}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/auth/logout", "", nil).Code)
}

func TestCatalog(t *testing.T) {
	a := newApp(t)
	dune := a.movie(t, "Dune", "Sci-Fi", "Adventure")
	a.movie(t, "Arrival", "Sci-Fi")
	a.movie(t, "Heat", "Crime")

	rec := a.do(t, http.MethodGet, "/v1/movies", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 3)

	rec = a.do(t, http.MethodGet, "/v1/movies/featured", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 3)

	rec = a.do(t, http.MethodGet, "/v1/movies/"+dune, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dune", decode(t, rec)["title"])

	rec = a.do(t, http.MethodGet, "/v1/movies/"+dune+"/related", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Arrival", items[0].(map[string]any)["title"])

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/movies/nope", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/movies/nope/related", "", nil).Code)
}

func TestBookingFlow(t *testing.T) {
	a := newApp(t)
	_, token := a.register(t, "ana@example.com")
	dune := a.movie(t, "Dune", "Sci-Fi")

	rec := a.do(t, http.MethodPost, "/v1/bookings", token, map[string]any{
		"movieId": dune, "date": "2025-07-01", "time": "6:00 PM", "seats": []string{"a1", "A2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, 25.0, created["totalPrice"])
	assert.Equal(t, "confirmed", created["status"])
	assert.Equal(t, "A1, A2", created["seatsText"])

	rec = a.do(t, http.MethodPost, "/v1/bookings", token, map[string]any{
		"movieId": dune, "date": "2025-07-01", "time": "11:00 AM", "seatCount": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/bookings", token, map[string]any{
		"movieId": "missing", "date": "2025-07-01", "time": "6:00 PM", "seatCount": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/my-bookings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune", items[0].(map[string]any)["movie"].(map[string]any)["title"])

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/my-bookings?status=lost", token, nil).Code)

	rec = a.do(t, http.MethodGet, "/v1/my-bookings/export?format=csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="bookings.csv"`)
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Movie", "Date", "Time", "Seats", "Price", "Status"},
		{"Dune", "2025-07-01", "6:00 PM", "A1, A2", "25.00", "CONFIRMED"},
	}, rows)

	rec = a.do(t, http.MethodGet, "/v1/my-bookings/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/my-bookings", "", nil).Code)
}

func TestAdmin(t *testing.T) {
	a := newApp(t)
	uid, token := a.register(t, "boss@example.com")
	_, other := a.register(t, "ana@example.com")

	rec := a.do(t, http.MethodGet, "/v1/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// granted out of band
	require.NoError(t, a.store.Update(context.Background(), repository.Users, uid, map[string]any{"admin": true}))

	rec = a.do(t, http.MethodPost, "/v1/admin/movies", token, map[string]any{
		"title": "Dune", "genre": []string{"Sci-Fi"}, "ticketPrice": 10, "showtimes": []string{"6:00 PM"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)
	assert.Equal(t, 1, a.purged.n)

	rec = a.do(t, http.MethodPatch, "/v1/admin/movies/"+id, token, map[string]any{"ticketPrice": 12})
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, 12.0, m["ticketPrice"])
	assert.Equal(t, "Dune", m["title"])

	assert.Equal(t, http.StatusNotFound,
		a.do(t, http.MethodPatch, "/v1/admin/movies/nope", token, map[string]any{"title": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodPost, "/v1/admin/movies", token, map[string]any{"title": "No genre"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodPatch, "/v1/admin/movies/"+id, token, map[string]any{"showtimes": []string{"25:99"}}).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodPatch, "/v1/admin/movies/"+id, token, map[string]any{"genre": []string{""}}).Code)

	rec = a.do(t, http.MethodPost, "/v1/bookings", other, map[string]any{
		"movieId": id, "date": "2025-07-01", "time": "6:00 PM", "seatCount": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/v1/admin/bookings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "ana@example.com", items[0].(map[string]any)["user"].(map[string]any)["email"])

	rec = a.do(t, http.MethodGet, "/v1/admin/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)

	rec = a.do(t, http.MethodGet, "/v1/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"userCount": 2.0, "movieCount": 1.0, "bookingCount": 1.0, "totalRevenue": 24.0,
	}, decode(t, rec))

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/v1/admin/movies/"+id, token, nil).Code)

	// the booking stays but the admin listing drops it without its movie
	rec = a.do(t, http.MethodGet, "/v1/admin/bookings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	rec = a.do(t, http.MethodGet, "/v1/my-bookings", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode(t, rec)["items"].([]any)
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].(map[string]any)["movie"])

	rec = a.do(t, http.MethodGet, "/v1/admin/bookings/export?format=csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Movie,Date,Time,Seats,Price,Status\n", rec.Body.String())
}
