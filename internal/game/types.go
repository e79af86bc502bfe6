// internal/game/types.go
//
// Core type definitions for the brand-guessing engine.
// Defines:
//   - NaicsFeedback / StatesFeedback / PoisFeedback: per-attribute results.
//   - Feedback: the three signals produced for one guess.
//   - Session: state for a single in-progress or finished game.

package game

import "github.com/safegraphle/go-server/internal/catalog"

// NaicsFeedback is the industry-code comparison result.
// Possible values:
//   - "exact":   full NAICS codes are equal.
//   - "partial": first 4 digits (industry group) match, full codes differ.
//   - "none":    industry groups differ.
type NaicsFeedback string

const (
	NaicsExact   NaicsFeedback = "exact"
	NaicsPartial NaicsFeedback = "partial"
	NaicsNone    NaicsFeedback = "none"
)

// StatesFeedback is the state-coverage comparison result, bucketed on the
// share of the answer's states the guess covers.
// Possible values:
//   - "full":    every one of the answer's states is covered.
//   - "partial": strictly more than half are covered.
//   - "none":    half or less (zero overlap and small overlaps share a bucket).
type StatesFeedback string

const (
	StatesFull    StatesFeedback = "full"
	StatesPartial StatesFeedback = "partial"
	StatesNone    StatesFeedback = "none"
)

// PoisFeedback is the location-count comparison result.
// Possible values:
//   - "exact":    counts are equal.
//   - "too_high": guess has more POIs than the answer (go lower).
//   - "too_low":  guess has fewer POIs than the answer (go higher).
type PoisFeedback string

const (
	PoisExact   PoisFeedback = "exact"
	PoisTooHigh PoisFeedback = "too_high"
	PoisTooLow  PoisFeedback = "too_low"
)

// Feedback bundles the three signals for one guess.
type Feedback struct {
	Naics  NaicsFeedback
	States StatesFeedback
	Pois   PoisFeedback
}

// GuessRecord is one ledger entry: what was guessed and what it scored.
type GuessRecord struct {
	Name     string // canonical brand name from the catalog
	Feedback Feedback
}

// Session holds the state of a single game.
type Session struct {
	ID          string         // Unique session identifier (random hex string).
	Date        string         // Date key (YYYY-MM-DD) the session was created for.
	PuzzleIndex int            // Catalog index of the answer; the shareable puzzle number.
	Answer      *catalog.Brand // The secret answer, immutable for the session.
	Guesses     []GuessRecord  // Chronological guess ledger.
	Finished    bool           // True once the game is over (won or lost).
	Won         bool           // True if the game finished with a win.
}
