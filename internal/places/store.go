// internal/places/store.go
//
// SQLite-backed access to the POI dataset: the materialized stand-in for
// the analytical warehouse the brand summaries and location rows come from.
// Game logic never touches this package directly; the catalog is loaded
// through it once at startup, and location rows feed the answer map.

package places

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safegraphle/go-server/internal/catalog"
)

// Location is one POI coordinate pair for map rendering.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// BrandSummaries loads candidate brand rows from the dataset, pre-filtered
// to the catalog eligibility rules and in canonical catalog order.
// Only the states column is parsed here; structural validation of every
// row happens when the catalog is built from these summaries.
func (s *Store) BrandSummaries(ctx context.Context) ([]catalog.Brand, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, naics_code, top_category, sub_category, num_pois, num_states, states, brand_id
FROM brand_summary
WHERE num_states BETWEEN 3 AND 25
  AND num_pois > 250
  AND (naics_code LIKE '7225%' OR naics_code LIKE '4451%')
ORDER BY naics_code DESC, num_pois DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Brand
	for rows.Next() {
		var b catalog.Brand
		var states string
		if err := rows.Scan(&b.Name, &b.NaicsCode, &b.TopCategory, &b.SubCategory,
			&b.NumPOIs, &b.NumStates, &states, &b.BrandID); err != nil {
			return nil, err
		}
		if b.States, err = catalog.ParseStates(states); err != nil {
			return nil, fmt.Errorf("brand %q: %w", b.Name, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Locations returns coordinate pairs for every POI of a brand.
func (s *Store) Locations(ctx context.Context, brandID string) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT latitude, longitude
FROM poi_locations
WHERE brand_id = ?`, brandID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.Latitude, &l.Longitude); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
