// internal/httpserver/routes_game.go
//
// HTTP routes for playing SAFEGRAPHLE.
//   - GET  /brands          → valid guess names, in catalog order
//   - POST /game/new        → start today's puzzle (or a random one)
//   - POST /game/guess      → submit a guess for an open session
//   - GET  /game/{id}/map   → answer POI coordinates for map rendering
//   - GET  /debug/catalog   → catalog counts
//
// Daily sessions are reused within a date: calling /game/new twice on the
// same day from the same browser returns the same game. Sessions live in
// memory only; nothing about a player survives the process.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/safegraphle/go-server/internal/catalog"
	"github.com/safegraphle/go-server/internal/daily"
	"github.com/safegraphle/go-server/internal/game"
	"github.com/safegraphle/go-server/internal/places"
)

// mountGame registers the game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Get("/brands", s.handleBrands)
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/guess", s.handleGuess)
	r.Get("/game/{id}/map", s.handleMap)
	r.Get("/debug/catalog", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(catalogStats())
	})
}

// handleBrands lists every valid guess (the original UI's selectbox).
func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string][]string{"brands": catalog.Names()})
}

// -----------------------------------------------------------------------------
// /game/new

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Random bool `json:"random"` // true → random answer instead of today's
}
type newGameRes struct {
	GameID  string `json:"gameId"`
	Puzzle  int    `json:"puzzle"` // shareable puzzle number (catalog index)
	Date    string `json:"date"`
	Guesses int    `json:"guesses"`
	State   string `json:"state"`
}

// handleNewGame creates a session for today's scheduled answer, or a random
// one on request. A daily session already open for this browser and date is
// reused instead of re-rolled.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	date := daily.DateKey(time.Now())

	// Reuse today's daily session when the browser already holds one.
	// Finished sessions come back as-is: one daily puzzle per browser
	// per day, win or lose.
	if !req.Random {
		if c := parseGameToken(r); c != nil && !c.Random && c.Date == date {
			if g, err := s.store.Get(r.Context(), c.GameID); err == nil {
				_ = json.NewEncoder(w).Encode(newGameRes{
					GameID: g.ID, Puzzle: g.PuzzleIndex, Date: g.Date,
					Guesses: len(g.Guesses), State: g.State(),
				})
				return
			}
		}
	}

	var (
		idx int
		err error
	)
	if req.Random {
		idx, err = daily.RandomIndex(catalog.Size())
	} else {
		idx, err = daily.PuzzleIndex(time.Now(), catalog.Size())
	}
	if err != nil {
		log.Error().Err(err).Msg("select answer index")
		http.Error(w, `{"error":"no_puzzle"}`, http.StatusServiceUnavailable)
		return
	}

	g := game.New(date, idx, catalog.At(idx))
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	tok, exp, err := signGameToken(g.ID, date, req.Random)
	if err != nil {
		log.Error().Err(err).Msg("sign game token")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	setGameCookie(w, tok, exp)

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID: g.ID, Puzzle: g.PuzzleIndex, Date: date, State: g.State(),
	})
}

// -----------------------------------------------------------------------------
// /game/guess

// guessReq is the request payload for POST /game/guess.
// GameID may be omitted when the game token cookie identifies the session.
type guessReq struct {
	GameID string `json:"gameId"`
	Brand  string `json:"brand"`
}

// guessedBrand echoes the guessed record's visible attributes, as the
// original guess table did.
type guessedBrand struct {
	Name      string   `json:"name"`
	NaicsCode string   `json:"naicsCode"`
	NumPOIs   int      `json:"numPois"`
	States    []string `json:"states"`
}

// guessRes is the response payload for POST /game/guess.
type guessRes struct {
	Guess   guessedBrand        `json:"guess"`
	Naics   game.NaicsFeedback  `json:"naics"`
	States  game.StatesFeedback `json:"states"`
	Pois    game.PoisFeedback   `json:"pois"`
	Glyphs  string              `json:"glyphs"`            // "🟩 🟨 ⬇️" row for this guess
	State   string              `json:"state"`             // playing | won | lost
	Guesses int                 `json:"guesses"`           // attempts used
	Summary string              `json:"summary,omitempty"` // shareable, when finished
	Answer  string              `json:"answer,omitempty"`  // revealed on loss
}

// handleGuess validates and applies a guess for an open session.
// - The game token must match the session being played.
// - Unknown brands are rejected without consuming an attempt.
// - Finished sessions reject further guesses.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	claims := parseGameToken(r)
	if claims == nil {
		http.Error(w, `{"error":"no_game_token"}`, http.StatusUnauthorized)
		return
	}
	if req.GameID == "" {
		req.GameID = claims.GameID
	}
	if req.GameID != claims.GameID {
		http.Error(w, `{"error":"token_mismatch"}`, http.StatusForbidden)
		return
	}

	g, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	fb, state, err := g.ApplyGuess(req.Brand)
	switch {
	case errors.Is(err, game.ErrUnknownBrand):
		http.Error(w, `{"error":"unknown_brand"}`, http.StatusBadRequest)
		return
	case errors.Is(err, game.ErrGameOver):
		http.Error(w, `{"error":"game_over"}`, http.StatusConflict)
		return
	case err != nil:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	guessed, _ := catalog.Lookup(req.Brand)
	res := guessRes{
		Guess: guessedBrand{
			Name:      guessed.Name,
			NaicsCode: guessed.NaicsCode,
			NumPOIs:   guessed.NumPOIs,
			States:    guessed.StateList(),
		},
		Naics:   fb.Naics,
		States:  fb.States,
		Pois:    fb.Pois,
		Glyphs:  fb.Glyphs(),
		State:   state,
		Guesses: len(g.Guesses),
	}
	if g.Finished {
		res.Summary = g.Summary()
		if !g.Won {
			res.Answer = g.Answer.Name
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

// -----------------------------------------------------------------------------
// /game/{id}/map

// mapRes carries the answer's POI coordinates for map rendering.
// Exposing locations does not reveal the brand name; the original showed
// the same map before any guess.
type mapRes struct {
	Puzzle    int               `json:"puzzle"`
	Locations []places.Location `json:"locations"`
}

// handleMap returns lat/lon rows for the session's answer brand.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	locs, err := s.places.Locations(r.Context(), g.Answer.BrandID)
	if err != nil {
		log.Error().Err(err).Str("brandId", g.Answer.BrandID).Msg("load locations")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if locs == nil {
		locs = []places.Location{}
	}
	_ = json.NewEncoder(w).Encode(mapRes{Puzzle: g.PuzzleIndex, Locations: locs})
}
