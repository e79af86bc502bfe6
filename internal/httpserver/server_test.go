package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safegraphle/go-server/internal/catalog"
	"github.com/safegraphle/go-server/internal/daily"
	"github.com/safegraphle/go-server/internal/game"
	"github.com/safegraphle/go-server/internal/places"
	"github.com/safegraphle/go-server/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestServer(t *testing.T) (*Server, store.Store, sqlmock.Sqlmock) {
	t.Helper()
	require.NoError(t, catalog.Init(nil)) // embedded default catalog

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := store.NewMemoryStore()
	return New(mem, places.NewStore(db)), mem, mock
}

func doJSON(t *testing.T, s *Server, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// startGame begins a game and returns its response and cookies.
func startGame(t *testing.T, s *Server, random bool) (newGameRes, []*http.Cookie) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/game/new", newGameReq{Random: random}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[newGameRes](t, rec)
	require.NotEmpty(t, res.GameID)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return res, cookies
}

// ==========================
// Diagnostics
// ==========================

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestBrandsListsCatalog(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/brands", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[map[string][]string](t, rec)
	assert.Len(t, res["brands"], catalog.Size())
}

func TestDebugCatalog(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/debug/catalog", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[map[string]int](t, rec)
	assert.Equal(t, catalog.Size(), res["brands"])
}

// ==========================
// /game/new
// ==========================

func TestNewGameDaily(t *testing.T) {
	s, mem, _ := newTestServer(t)
	res, _ := startGame(t, s, false)

	wantIdx, err := daily.PuzzleIndex(time.Now(), catalog.Size())
	require.NoError(t, err)
	assert.Equal(t, wantIdx, res.Puzzle)
	assert.Equal(t, daily.DateKey(time.Now()), res.Date)
	assert.Equal(t, "playing", res.State)

	g, err := mem.Get(context.Background(), res.GameID)
	require.NoError(t, err)
	assert.Equal(t, catalog.At(wantIdx).Name, g.Answer.Name)
}

func TestNewGameDailyReusesSession(t *testing.T) {
	s, _, _ := newTestServer(t)
	first, cookies := startGame(t, s, false)

	rec := doJSON(t, s, http.MethodPost, "/game/new", newGameReq{}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[newGameRes](t, rec)
	assert.Equal(t, first.GameID, second.GameID)
}

func TestNewGameDailyReturnsFinishedSession(t *testing.T) {
	s, mem, _ := newTestServer(t)
	first, cookies := startGame(t, s, false)

	g, err := mem.Get(context.Background(), first.GameID)
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: first.GameID, Brand: g.Answer.Name}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	// One daily puzzle per day: the completed session comes back as-is
	// rather than a fresh one.
	rec = doJSON(t, s, http.MethodPost, "/game/new", newGameReq{}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[newGameRes](t, rec)
	assert.Equal(t, first.GameID, second.GameID)
	assert.Equal(t, "won", second.State)
	assert.Equal(t, 1, second.Guesses)
}

func TestNewGameRandomRolls(t *testing.T) {
	s, _, _ := newTestServer(t)
	res, cookies := startGame(t, s, true)
	assert.GreaterOrEqual(t, res.Puzzle, 0)
	assert.Less(t, res.Puzzle, catalog.Size())

	// Random games are never reused across /game/new calls.
	rec := doJSON(t, s, http.MethodPost, "/game/new", newGameReq{Random: true}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[newGameRes](t, rec)
	assert.NotEqual(t, res.GameID, second.GameID)
}

// ==========================
// /game/guess
// ==========================

func TestGuessRequiresToken(t *testing.T) {
	s, _, _ := newTestServer(t)
	res, _ := startGame(t, s, false)

	rec := doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: res.GameID, Brand: catalog.Names()[0]}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuessTokenMismatch(t *testing.T) {
	s, _, _ := newTestServer(t)
	_, cookies := startGame(t, s, false)

	rec := doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: "someone-elses-game", Brand: catalog.Names()[0]}, cookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuessUnknownBrand(t *testing.T) {
	s, _, _ := newTestServer(t)
	res, cookies := startGame(t, s, false)

	rec := doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: res.GameID, Brand: "No Such Brand"}, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_brand")
}

func TestGuessFlowToWin(t *testing.T) {
	s, mem, _ := newTestServer(t)
	res, cookies := startGame(t, s, false)

	g, err := mem.Get(context.Background(), res.GameID)
	require.NoError(t, err)
	answer := g.Answer.Name

	// One wrong guess first.
	var wrong string
	for _, n := range catalog.Names() {
		if n != answer {
			wrong = n
			break
		}
	}
	rec := doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: res.GameID, Brand: wrong}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	gr := decode[guessRes](t, rec)
	assert.Equal(t, "playing", gr.State)
	assert.Equal(t, 1, gr.Guesses)
	assert.Equal(t, wrong, gr.Guess.Name)
	assert.Empty(t, gr.Summary)
	assert.Empty(t, gr.Answer)

	// Then the answer: win, summary, no reveal needed.
	rec = doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: res.GameID, Brand: answer}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	gr = decode[guessRes](t, rec)
	assert.Equal(t, "won", gr.State)
	assert.Equal(t, 2, gr.Guesses)
	assert.Equal(t, game.NaicsExact, gr.Naics)
	assert.Equal(t, game.StatesFull, gr.States)
	assert.Equal(t, game.PoisExact, gr.Pois)
	assert.True(t, strings.HasPrefix(gr.Summary, fmt.Sprintf("SAFEGRAPHLE #%d\n", res.Puzzle)))
	assert.Empty(t, gr.Answer)

	// Guessing again is rejected.
	rec = doJSON(t, s, http.MethodPost, "/game/guess",
		guessReq{GameID: res.GameID, Brand: wrong}, cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGuessFlowToLoss(t *testing.T) {
	s, mem, _ := newTestServer(t)
	res, cookies := startGame(t, s, false)

	g, err := mem.Get(context.Background(), res.GameID)
	require.NoError(t, err)
	answer := g.Answer.Name

	var misses []string
	for _, n := range catalog.Names() {
		if n != answer {
			misses = append(misses, n)
		}
		if len(misses) == game.MaxGuesses {
			break
		}
	}

	var gr guessRes
	for i, n := range misses {
		rec := doJSON(t, s, http.MethodPost, "/game/guess",
			guessReq{GameID: res.GameID, Brand: n}, cookies)
		require.Equal(t, http.StatusOK, rec.Code, "guess %d", i+1)
		gr = decode[guessRes](t, rec)
	}
	assert.Equal(t, "lost", gr.State)
	assert.Equal(t, game.MaxGuesses, gr.Guesses)
	assert.Equal(t, answer, gr.Answer, "answer is revealed on loss")
	assert.NotEmpty(t, gr.Summary)
}

// ==========================
// /game/{id}/map
// ==========================

func TestMapReturnsAnswerLocations(t *testing.T) {
	s, mem, mock := newTestServer(t)
	res, _ := startGame(t, s, false)

	g, err := mem.Get(context.Background(), res.GameID)
	require.NoError(t, err)

	mock.ExpectQuery("FROM poi_locations").WithArgs(g.Answer.BrandID).WillReturnRows(
		sqlmock.NewRows([]string{"latitude", "longitude"}).AddRow(30.2672, -97.7431),
	)

	rec := doJSON(t, s, http.MethodGet, "/game/"+res.GameID+"/map", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mr := decode[mapRes](t, rec)
	assert.Equal(t, res.Puzzle, mr.Puzzle)
	require.Len(t, mr.Locations, 1)
	assert.InDelta(t, -97.7431, mr.Locations[0].Longitude, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapUnknownSession(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/game/nope/map", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
