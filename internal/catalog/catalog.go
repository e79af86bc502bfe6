// internal/catalog/catalog.go
//
// Candidate catalog for the game: the universe of brands that can be the
// daily answer or a valid guess.
//
// Responsibilities:
//   - Load brand summary records from a CSV file, the dataset database, or
//     the embedded default catalog.
//   - Validate records at load time (malformed rows are rejected early;
//     evaluation assumes well-formed data).
//   - Enforce eligibility: >250 POIs, 3–25 states, NAICS prefix 7225/4451.
//   - Keep the catalog ordered by NAICS code desc, then POI count desc —
//     the order the daily schedule indexes into.
//   - Supply lookups: Brands, Lookup (case-insensitive by name), Names, Stats.
//
// Initialization behavior (Init):
//   1. If CATALOG_FILE is set, load that CSV file.
//   2. Else, if a database loader is provided and yields rows, use those.
//   3. Else, fall back to the embedded default catalog.
//
// Environment variables:
//   CATALOG_FILE=/path/to/catalog.csv
//
// CSV columns (header required):
//   name,naics_code,top_category,sub_category,num_pois,num_states,states,brand_id
// where `states` is a pipe-separated list of state codes.
//
// Initialization is run once (sync.Once); the catalog is read-only after.

package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/safegraphle/go-server/assets"
)

// Brand is one catalog entry: a named business aggregating many POIs.
type Brand struct {
	Name        string              // unique display name, lookup key
	NaicsCode   string              // digits, len >= 4; first 4 = industry group
	TopCategory string
	SubCategory string
	NumPOIs     int                 // count of physical locations
	NumStates   int                 // distinct states with >= 1 location
	States      map[string]struct{} // distinct state codes observed
	BrandID     string              // dataset identifier, used for POI lookups
}

// StateList returns the brand's states sorted, for display.
func (b *Brand) StateList() []string {
	out := make([]string, 0, len(b.States))
	for s := range b.States {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ErrMalformedRecord wraps any row that cannot be parsed into a Brand.
var ErrMalformedRecord = errors.New("catalog: malformed record")

var (
	initOnce   sync.Once
	brands     []Brand
	byName     map[string]*Brand // keyed by lower(name)
	ineligible int               // rows filtered out by eligibility rules
	initialErr error
)

// Loader supplies brand rows from an external source (the dataset DB).
type Loader func() ([]Brand, error)

// Init loads the catalog exactly once.
// fromDB may be nil; an empty DB falls through to the embedded default.
func Init(fromDB Loader) error {
	initOnce.Do(func() {
		var (
			list     []Brand
			filtered int
		)

		switch path := os.Getenv("CATALOG_FILE"); {
		// Case 1: explicit CSV file
		case path != "":
			f, err := os.Open(path)
			if err != nil {
				initialErr = err
				return
			}
			defer f.Close()
			list, filtered, initialErr = FromCSV(f)
			if initialErr != nil {
				return
			}

		// Case 2: dataset database, when populated
		case fromDB != nil:
			rows, err := fromDB()
			if err != nil {
				initialErr = err
				return
			}
			if len(rows) > 0 {
				list, filtered, initialErr = build(rows)
				if initialErr != nil {
					return
				}
				break
			}
			fallthrough

		// Case 3: embedded default catalog
		default:
			rc, err := assets.DefaultCatalog()
			if err != nil {
				initialErr = err
				return
			}
			defer rc.Close()
			list, filtered, initialErr = FromCSV(rc)
			if initialErr != nil {
				return
			}
		}

		brands = list
		ineligible = filtered
		byName = make(map[string]*Brand, len(list))
		for i := range brands {
			byName[strings.ToLower(brands[i].Name)] = &brands[i]
		}

		if len(brands) == 0 {
			initialErr = errors.New("catalog: no eligible brands loaded")
		}
	})
	return initialErr
}

// FromCSV parses, validates, filters, and orders catalog rows.
// The int result counts rows dropped by the eligibility rules.
func FromCSV(r io.Reader) ([]Brand, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 8

	// Header row is required and discarded.
	if _, err := cr.Read(); err != nil {
		return nil, 0, fmt.Errorf("catalog: read header: %w", err)
	}

	var rows []Brand
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, line, err)
		}
		b, err := parseRow(rec)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, b)
	}
	return build(rows)
}

// parseRow converts one CSV record into a Brand, rejecting malformed fields.
func parseRow(rec []string) (Brand, error) {
	b := Brand{
		Name:        strings.TrimSpace(rec[0]),
		NaicsCode:   strings.TrimSpace(rec[1]),
		TopCategory: strings.TrimSpace(rec[2]),
		SubCategory: strings.TrimSpace(rec[3]),
		BrandID:     strings.TrimSpace(rec[7]),
	}
	var err error
	if b.NumPOIs, err = strconv.Atoi(strings.TrimSpace(rec[4])); err != nil {
		return b, fmt.Errorf("%w: num_pois %q", ErrMalformedRecord, rec[4])
	}
	if b.NumStates, err = strconv.Atoi(strings.TrimSpace(rec[5])); err != nil {
		return b, fmt.Errorf("%w: num_states %q", ErrMalformedRecord, rec[5])
	}
	b.States, err = ParseStates(rec[6])
	if err != nil {
		return b, err
	}
	return b, validate(&b)
}

// ParseStates deserializes a pipe-separated state list into a set.
func ParseStates(s string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, part := range strings.Split(s, "|") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if len(code) != 2 || !isAlpha(code) {
			return nil, fmt.Errorf("%w: state code %q", ErrMalformedRecord, part)
		}
		out[code] = struct{}{}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty states list", ErrMalformedRecord)
	}
	return out, nil
}

// validate rejects structurally broken rows. Eligibility is separate.
func validate(b *Brand) error {
	if b.Name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedRecord)
	}
	if len(b.NaicsCode) < 4 || !isDigits(b.NaicsCode) {
		return fmt.Errorf("%w: naics_code %q", ErrMalformedRecord, b.NaicsCode)
	}
	if b.NumPOIs < 0 || b.NumStates < 0 {
		return fmt.Errorf("%w: negative counts for %s", ErrMalformedRecord, b.Name)
	}
	if len(b.States) == 0 {
		return fmt.Errorf("%w: empty states for %s", ErrMalformedRecord, b.Name)
	}
	return nil
}

// Eligible reports whether a well-formed brand may enter the catalog:
// more than 250 POIs, 3–25 states, restaurant (7225) or grocery (4451) NAICS.
func Eligible(b *Brand) bool {
	if b.NumPOIs <= 250 {
		return false
	}
	if b.NumStates < 3 || b.NumStates > 25 {
		return false
	}
	prefix := b.NaicsCode[:4]
	return prefix == "7225" || prefix == "4451"
}

// build validates every row, filters eligibility, checks name uniqueness,
// and applies the canonical ordering (NAICS desc, then POIs desc).
// Validation runs here for all sources: database rows never pass through
// parseRow, so CSV parsing alone is not enough. The int result counts
// rows dropped by the eligibility rules.
func build(rows []Brand) ([]Brand, int, error) {
	out := make([]Brand, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	filtered := 0
	for i := range rows {
		b := rows[i]
		if err := validate(&b); err != nil {
			return nil, 0, err
		}
		if !Eligible(&b) {
			filtered++
			continue
		}
		key := strings.ToLower(b.Name)
		if _, dup := seen[key]; dup {
			return nil, 0, fmt.Errorf("%w: duplicate name %q", ErrMalformedRecord, b.Name)
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NaicsCode != out[j].NaicsCode {
			return out[i].NaicsCode > out[j].NaicsCode
		}
		return out[i].NumPOIs > out[j].NumPOIs
	})
	return out, filtered, nil
}

// Brands returns the ordered catalog. Callers must not mutate it.
func Brands() []Brand { return brands }

// Size returns the number of catalog entries.
func Size() int { return len(brands) }

// Lookup finds a brand by name, case-insensitively.
func Lookup(name string) (*Brand, bool) {
	b, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

// At returns the brand at a catalog index.
func At(i int) *Brand { return &brands[i] }

// Names returns brand names in catalog order, for guess pickers.
func Names() []string {
	out := make([]string, len(brands))
	for i := range brands {
		out[i] = brands[i].Name
	}
	return out
}

// Stats returns counts of loaded and eligibility-filtered rows.
func Stats() (loaded int, filtered int) {
	return len(brands), ineligible
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
