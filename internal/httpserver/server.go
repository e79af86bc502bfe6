// internal/httpserver/server.go
//
// HTTP server wiring for the SAFEGRAPHLE backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/brands", "/debug/catalog".
//   - Game endpoints: POST /game/new, POST /game/guess, GET /game/{id}/map.
//   - Game-token handling: each session is bound to a signed HS256 cookie so
//     only its creator can submit guesses. No user accounts.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).

package httpserver

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/safegraphle/go-server/internal/catalog"
	"github.com/safegraphle/go-server/internal/places"
	"github.com/safegraphle/go-server/internal/store"
)

// Server bundles router, in-memory session store, and the POI dataset store.
type Server struct {
	r      *chi.Mux
	store  store.Store
	places *places.Store
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, pl *places.Store) *Server {
	s := &Server{r: chi.NewRouter(), store: st, places: pl}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"safegraphle-go","endpoints":["/health","/brands","POST /game/new","POST /game/guess","GET /game/{id}/map"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Game endpoints
	s.mountGame(s.r)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --------------------------- game tokens -----------------------------------

const gameCookieName = "safegraphle_game"

// gameClaims bind a session to the browser that created it.
type gameClaims struct {
	GameID string `json:"gid"`
	Date   string `json:"date"`
	Random bool   `json:"random"`
	jwt.RegisteredClaims
}

// signGameToken issues an HS256 token for a session, valid for 2 days
// (long enough to finish today's puzzle, short enough to stay disposable).
func signGameToken(gameID, date string, random bool) (string, time.Time, error) {
	exp := time.Now().Add(48 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, gameClaims{
		GameID: gameID,
		Date:   date,
		Random: random,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	ss, err := t.SignedString([]byte(tokenSecret()))
	return ss, exp, err
}

// parseGameToken validates the cookie and returns its claims, or nil.
func parseGameToken(r *http.Request) *gameClaims {
	c, err := r.Cookie(gameCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	claims := &gameClaims{}
	tok, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(tokenSecret()), nil
	})
	if err != nil || !tok.Valid || claims.GameID == "" {
		return nil
	}
	return claims
}

// setGameCookie writes the game token cookie with appropriate security attributes.
func setGameCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

func tokenSecret() string {
	return getEnv("GAME_TOKEN_SECRET", "dev_secret_change_me")
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// catalogStats backs /debug/catalog (registered in mountGame).
func catalogStats() map[string]int {
	loaded, filtered := catalog.Stats()
	return map[string]int{"brands": loaded, "filtered": filtered}
}
