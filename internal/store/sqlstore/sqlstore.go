// Package sqlstore implements store.Repository over database/sql. The
// postgres and sqlite packages open the connection, run the embedded
// migrations and supply their dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration through driver.
func Migrate(driver database.Driver, databaseName string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, databaseName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

type Dialect struct {
	// Dollar numbers placeholders as $1, $2 instead of ?.
	Dollar bool
	// IsUniqueViolation recognizes the driver's unique constraint error.
	IsUniqueViolation func(error) bool
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	if dialect.IsUniqueViolation == nil {
		dialect.IsUniqueViolation = func(error) bool { return false }
	}
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) CreateSavedFilter(ctx context.Context, filter domain.SavedFilter) (*domain.SavedFilter, error) {
	if err := store.ValidateSavedFilter(filter); err != nil {
		return nil, err
	}
	criteria, err := json.Marshal(filter.Criteria)
	if err != nil {
		return nil, fmt.Errorf("encode criteria: %w", err)
	}
	sortSpec, err := json.Marshal(filter.Sort)
	if err != nil {
		return nil, fmt.Errorf("encode sort: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO saved_filters (id, owner, name, criteria, sort_spec, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`), filter.ID, filter.Owner, filter.Name, string(criteria), string(sortSpec), filter.CreatedAt.UnixMilli())
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, store.ErrDuplicateName
		}
		return nil, err
	}
	filter.CreatedAt = time.UnixMilli(filter.CreatedAt.UnixMilli()).UTC()
	return &filter, nil
}

func (s *Store) ListSavedFilters(ctx context.Context, owner string) ([]domain.SavedFilter, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, owner, name, criteria, sort_spec, created_at_ms
		FROM saved_filters
		WHERE owner = ?
		ORDER BY created_at_ms, id
	`), owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	filters := make([]domain.SavedFilter, 0, 8)
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return filters, nil
}

func (s *Store) GetSavedFilter(ctx context.Context, owner string, id string) (*domain.SavedFilter, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, owner, name, criteria, sort_spec, created_at_ms
		FROM saved_filters
		WHERE owner = ? AND id = ?
	`), owner, id)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) DeleteSavedFilter(ctx context.Context, owner string, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM saved_filters WHERE owner = ? AND id = ?`), owner, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetPreference(ctx context.Context, owner string, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT pref_value FROM preferences WHERE owner = ? AND pref_key = ?
	`), owner, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return value, err
}

func (s *Store) PutPreference(ctx context.Context, owner string, key string, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO preferences (owner, pref_key, pref_value, updated_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, pref_key) DO UPDATE SET pref_value = excluded.pref_value, updated_at_ms = excluded.updated_at_ms
	`), owner, key, value, time.Now().UnixMilli())
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFilter(row scanner) (domain.SavedFilter, error) {
	var (
		f                  domain.SavedFilter
		criteria, sortSpec string
		createdAtMs        int64
	)
	if err := row.Scan(&f.ID, &f.Owner, &f.Name, &criteria, &sortSpec, &createdAtMs); err != nil {
		return domain.SavedFilter{}, err
	}
	if err := json.Unmarshal([]byte(criteria), &f.Criteria); err != nil {
		return domain.SavedFilter{}, fmt.Errorf("decode criteria of %s: %w", f.ID, err)
	}
	if err := json.Unmarshal([]byte(sortSpec), &f.Sort); err != nil {
		return domain.SavedFilter{}, fmt.Errorf("decode sort of %s: %w", f.ID, err)
	}
	f.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	return f, nil
}
