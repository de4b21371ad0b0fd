package dataservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/pkg/metrics"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS species (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	common_name      TEXT,
	scientific_name  TEXT,
	kingdom          TEXT,
	total_population INTEGER,
	image            TEXT,
	description      TEXT,
	author           TEXT
)`

const sqliteColumns = `id, common_name, scientific_name, kingdom, total_population, image, description, author`

// SQLiteStore is a local Store. Updates are limited to rows whose author is
// the calling user, the same rule the hosted service applies.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrRequest, err)
	}
	// One connection, so a :memory: database is shared by every call.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create schema: %w", ErrRequest, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Insert adds a row and returns it with its assigned id.
func (s *SQLiteStore) Insert(ctx context.Context, sp species.Species) (*species.Species, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO species (common_name, scientific_name, kingdom, total_population, image, description, author)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING `+sqliteColumns,
		arg(sp.CommonName), arg(sp.ScientificName), arg(sp.Kingdom), arg(sp.TotalPopulation), arg(sp.Image), arg(sp.Description), arg(sp.Author),
	)
	out, err := scanSpecies(row)
	if err != nil {
		return nil, fmt.Errorf("%w: insert: %w", ErrRequest, err)
	}
	return out, nil
}

// List returns all rows ordered by id.
func (s *SQLiteStore) List(ctx context.Context, _ Caller) ([]species.Species, error) {
	defer observe("list", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM species ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrRequest, err)
	}
	defer func() { _ = rows.Close() }()

	var out []species.Species
	for rows.Next() {
		sp, err := scanSpecies(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list: %w", ErrRequest, err)
		}
		out = append(out, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrRequest, err)
	}
	return out, nil
}

// Get returns the row with id.
func (s *SQLiteStore) Get(ctx context.Context, _ Caller, id species.ID) (*species.Species, error) {
	defer observe("get", time.Now())

	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM species WHERE id = ?`, id.String())
	sp, err := scanSpecies(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %w", ErrRequest, err)
	}
	return sp, nil
}

// Update changes the row only when caller.UserID is its author.
func (s *SQLiteStore) Update(ctx context.Context, caller Caller, id species.ID, p species.Patch) (*species.Species, error) {
	defer observe("update", time.Now())

	if caller.UserID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE species
		 SET common_name = ?, scientific_name = ?, kingdom = ?, total_population = ?, image = ?, description = ?
		 WHERE id = ? AND author = ?
		 RETURNING `+sqliteColumns,
		p.CommonName, arg(p.ScientificName), arg(p.Kingdom), arg(p.TotalPopulation), arg(p.Image), arg(p.Description),
		id.String(), caller.UserID,
	)
	sp, err := scanSpecies(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update: %w", ErrRequest, err)
	}
	return sp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpecies(r scanner) (*species.Species, error) {
	var (
		id                                                    int64
		common, scientific, kingdom, image, description, auth sql.NullString
		population                                            sql.NullInt64
	)
	if err := r.Scan(&id, &common, &scientific, &kingdom, &population, &image, &description, &auth); err != nil {
		return nil, err
	}
	sp := &species.Species{
		ID:             species.NumericID(id),
		CommonName:     nullString(common),
		ScientificName: nullString(scientific),
		Kingdom:        nullString(kingdom),
		Image:          nullString(image),
		Description:    nullString(description),
		Author:         nullString(auth),
	}
	if population.Valid {
		sp.TotalPopulation = &population.Int64
	}
	return sp, nil
}

// arg turns a nil pointer into SQL NULL.
func arg[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func observe(op string, start time.Time) {
	metrics.RecordDataServiceLatency(op, float64(time.Since(start).Milliseconds()))
}
