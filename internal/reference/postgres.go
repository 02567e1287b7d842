package reference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore loads reference data from the indicators and countries tables.
//
//	CREATE TABLE indicators (
//	    datasource      text NOT NULL,
//	    area            text NOT NULL,
//	    short_name      text NOT NULL,
//	    long_name       text,
//	    code            text NOT NULL,
//	    country_profile boolean NOT NULL DEFAULT false,
//	    position        serial
//	);
//	CREATE TABLE countries (
//	    code       text PRIMARY KEY,
//	    iso2       text,
//	    short_name text NOT NULL,
//	    grp        text
//	);
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store backed by pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Load implements Loader.
func (s *PGStore) Load(ctx context.Context) (*Data, error) {
	indicators, err := s.indicators(ctx)
	if err != nil {
		return nil, err
	}
	countries, err := s.countries(ctx)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "reference data loaded",
		"source", "postgres",
		"indicators", len(indicators),
		"countries", len(countries),
	)
	return NewData(indicators, countries), nil
}

func (s *PGStore) indicators(ctx context.Context) ([]Indicator, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT datasource, area, short_name, COALESCE(long_name, ''), code, country_profile
		FROM indicators
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	var out []Indicator
	for rows.Next() {
		var ind Indicator
		if err := rows.Scan(&ind.Datasource, &ind.Area, &ind.ShortName, &ind.LongName, &ind.Code, &ind.CountryProfile); err != nil {
			return nil, fmt.Errorf("scan indicator row: %w", err)
		}
		if ind.LongName == "" {
			ind.LongName = ind.ShortName
		}
		out = append(out, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("indicator rows error: %w", err)
	}
	return out, nil
}

func (s *PGStore) countries(ctx context.Context) ([]Country, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, COALESCE(iso2, ''), short_name, COALESCE(grp, '')
		FROM countries
		ORDER BY short_name`)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	var out []Country
	for rows.Next() {
		var c Country
		if err := rows.Scan(&c.Code, &c.ISO2, &c.ShortName, &c.Group); err != nil {
			return nil, fmt.Errorf("scan country row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("country rows error: %w", err)
	}
	return out, nil
}
