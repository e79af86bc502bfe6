// internal/game/engine.go
//
// Core engine for a single SAFEGRAPHLE session.
// Responsibilities:
//   - Create new sessions bound to an answer brand (up to 6 guesses).
//   - Validate and apply guesses (catalog membership, attempt limit).
//   - Score guesses: NAICS code, state coverage, POI count.
//   - Track state transitions: playing → won/lost.
//   - Render the shareable summary (glyph rows per guess).
//
// Notes:
//   - Evaluate is a pure function; it never mutates its inputs.
//   - A win is detected by name identity with the answer, never by
//     feedback codes.
//   - A rejected guess (unknown brand, finished game) consumes no attempt.
//   - randomID() is a compact hex identifier for correlating server state.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/safegraphle/go-server/internal/catalog"
)

// MaxGuesses is the attempt limit per session.
const MaxGuesses = 6

var (
	// ErrUnknownBrand rejects a guessed name absent from the catalog.
	ErrUnknownBrand = errors.New("brand not in catalog")
	// ErrGameOver rejects a guess after the session finished or the
	// attempt limit was reached.
	ErrGameOver = errors.New("game finished")
)

// New constructs a session for the given answer.
func New(date string, puzzleIndex int, answer *catalog.Brand) *Session {
	return &Session{
		ID:          randomID(),
		Date:        date,
		PuzzleIndex: puzzleIndex,
		Answer:      answer,
		Guesses:     []GuessRecord{},
	}
}

// Evaluate compares a guessed brand against the answer and produces the
// three feedback signals. Pure: no side effects, inputs untouched.
func Evaluate(guess, answer *catalog.Brand) Feedback {
	return Feedback{
		Naics:  checkNaics(guess.NaicsCode, answer.NaicsCode),
		States: checkStates(guess.States, answer.States, answer.NumStates),
		Pois:   checkPois(guess.NumPOIs, answer.NumPOIs),
	}
}

// checkNaics compares classification codes: exact string equality, then
// the 4-digit industry group prefix.
func checkNaics(g, a string) NaicsFeedback {
	switch {
	case g == a:
		return NaicsExact
	case g[:4] == a[:4]:
		return NaicsPartial
	default:
		return NaicsNone
	}
}

// checkStates buckets the overlap with the answer's states, measured
// against the answer's true state count (always >= 3 by catalog invariant).
func checkStates(g, a map[string]struct{}, answerNumStates int) StatesFeedback {
	overlap := 0
	for s := range g {
		if _, ok := a[s]; ok {
			overlap++
		}
	}
	fraction := float64(overlap) / float64(answerNumStates)
	switch {
	case fraction == 1.0:
		return StatesFull
	case fraction > 0.5:
		return StatesPartial
	default:
		return StatesNone
	}
}

// checkPois compares location counts and reports which way to move.
func checkPois(g, a int) PoisFeedback {
	switch diff := g - a; {
	case diff == 0:
		return PoisExact
	case diff > 0:
		return PoisTooHigh
	default:
		return PoisTooLow
	}
}

// ApplyGuess validates and scores a guess, mutating the session state.
// Returns: the feedback, the new state string ("playing"/"won"/"lost"),
// or an error. Rejected guesses leave the ledger untouched.
//
// Validation rules:
//   - Session must not be finished and must have attempts remaining,
//     checked before any evaluation.
//   - The name must resolve to a catalog brand (case-insensitive).
//
// State transitions:
//   - Guessed name equals the answer's → Finished = true, Won = true.
//   - Else if the guess count reaches MaxGuesses → Finished = true (loss).
func (s *Session) ApplyGuess(name string) (Feedback, string, error) {
	if s.Finished || len(s.Guesses) >= MaxGuesses {
		return Feedback{}, s.State(), ErrGameOver
	}
	guess, ok := catalog.Lookup(name)
	if !ok {
		return Feedback{}, s.State(), fmt.Errorf("%w: %q", ErrUnknownBrand, name)
	}

	fb := Evaluate(guess, s.Answer)
	s.Guesses = append(s.Guesses, GuessRecord{Name: guess.Name, Feedback: fb})

	if strings.EqualFold(guess.Name, s.Answer.Name) {
		s.Finished, s.Won = true, true
	} else if len(s.Guesses) >= MaxGuesses {
		s.Finished = true
	}
	return fb, s.State(), nil
}

// State reports a coarse string representation of the session state.
func (s *Session) State() string {
	if s.Finished {
		if s.Won {
			return "won"
		}
		return "lost"
	}
	return "playing"
}

// Glyphs for the shareable summary, matching the original scorecard.
func (f NaicsFeedback) Glyph() string {
	switch f {
	case NaicsExact:
		return "🟩"
	case NaicsPartial:
		return "🟨"
	default:
		return "⬜"
	}
}

func (f StatesFeedback) Glyph() string {
	switch f {
	case StatesFull:
		return "🟩"
	case StatesPartial:
		return "🟨"
	default:
		return "⬜"
	}
}

func (f PoisFeedback) Glyph() string {
	switch f {
	case PoisExact:
		return "🟩"
	case PoisTooHigh:
		return "⬇️"
	default:
		return "⬆️"
	}
}

// Glyphs renders the three signals in fixed order: NAICS, STATES, POIS.
func (f Feedback) Glyphs() string {
	return f.Naics.Glyph() + " " + f.States.Glyph() + " " + f.Pois.Glyph()
}

// Summary assembles the shareable scorecard: a puzzle identifier line
// followed by one glyph row per guess, in guess order.
func (s *Session) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SAFEGRAPHLE #%d\n", s.PuzzleIndex)
	for _, g := range s.Guesses {
		sb.WriteString(g.Feedback.Glyphs())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
