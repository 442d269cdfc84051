// Package sqlite stores monitoring state in a SQLite database. The schema is
// compatible with databases created by earlier releases of the service.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"status-notification/internal/core/domain"
	output "status-notification/internal/core/ports/output"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memoryDSN = ":memory:"

// Layouts seen in last_update, newest first. Rows written by older releases
// may lack a zone offset; those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (output.MonitorRepository, error) {
	if path != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return newStore(db), nil
}

func newStore(db *sqlx.DB) *store {
	return &store{db: db}
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *store) Touch(ctx context.Context, object, sub string, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin touch: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO objects (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, object,
	); err != nil {
		return fmt.Errorf("insert object: %w", err)
	}

	var objectID int64
	if err := tx.GetContext(ctx, &objectID, `SELECT id FROM objects WHERE name = ?`, object); err != nil {
		return fmt.Errorf("get object id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sub_objects (object_id, name, last_update, notified)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(object_id, name) DO UPDATE SET last_update = excluded.last_update
	`, objectID, sub, formatTime(at)); err != nil {
		return fmt.Errorf("upsert sub-object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit touch: %w", err)
	}
	return nil
}

type objectRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Paused bool   `db:"paused"`
}

type subObjectRow struct {
	ID         int64          `db:"id"`
	ObjectID   int64          `db:"object_id"`
	Name       string         `db:"name"`
	LastUpdate sql.NullString `db:"last_update"`
	Notified   bool           `db:"notified"`
	Paused     bool           `db:"paused"`
}

func (s *store) ListObjects(ctx context.Context) ([]*domain.Object, error) {
	var objects []objectRow
	if err := s.db.SelectContext(ctx, &objects,
		`SELECT id, name, COALESCE(paused, 0) AS paused FROM objects ORDER BY id`,
	); err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var subs []subObjectRow
	if err := s.db.SelectContext(ctx, &subs, `
		SELECT id, object_id, name, last_update,
			COALESCE(notified, 0) AS notified, COALESCE(paused, 0) AS paused
		FROM sub_objects
		ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("list sub-objects: %w", err)
	}

	result := make([]*domain.Object, 0, len(objects))
	byID := make(map[int64]*domain.Object, len(objects))
	for _, row := range objects {
		obj := &domain.Object{
			ID:       row.ID,
			Name:     row.Name,
			Paused:   row.Paused,
			Children: []*domain.SubObject{},
		}
		result = append(result, obj)
		byID[row.ID] = obj
	}

	for _, row := range subs {
		parent, ok := byID[row.ObjectID]
		if !ok {
			// Orphan left behind by a database without foreign keys.
			continue
		}
		sub := &domain.SubObject{
			ID:       row.ID,
			ObjectID: row.ObjectID,
			Name:     row.Name,
			Notified: row.Notified,
			Paused:   row.Paused,
		}
		if row.LastUpdate.Valid && row.LastUpdate.String != "" {
			ts, err := parseTime(row.LastUpdate.String)
			if err != nil {
				return nil, fmt.Errorf("sub-object %d: %w", row.ID, err)
			}
			sub.LastUpdate = &ts
		}
		parent.Children = append(parent.Children, sub)
	}

	return result, nil
}

func (s *store) SetObjectPaused(ctx context.Context, object string, paused bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE objects SET paused = ? WHERE name = ?`, paused, object)
	if err != nil {
		return fmt.Errorf("update object paused: %w", err)
	}
	return expectRow(res, domain.ErrObjectNotFound)
}

func (s *store) SetSubObjectPaused(ctx context.Context, object, sub string, paused bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sub_objects SET paused = ?
		WHERE name = ? AND object_id = (SELECT id FROM objects WHERE name = ?)
	`, paused, sub, object)
	if err != nil {
		return fmt.Errorf("update sub-object paused: %w", err)
	}
	return s.subObjectResult(ctx, res, object)
}

func (s *store) DeleteObject(ctx context.Context, object string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sub_objects WHERE object_id = (SELECT id FROM objects WHERE name = ?)`, object,
	); err != nil {
		return fmt.Errorf("delete sub-objects: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE name = ?`, object)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := expectRow(res, domain.ErrObjectNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *store) DeleteSubObject(ctx context.Context, object, sub string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sub_objects
		WHERE name = ? AND object_id = (SELECT id FROM objects WHERE name = ?)
	`, sub, object)
	if err != nil {
		return fmt.Errorf("delete sub-object: %w", err)
	}
	return s.subObjectResult(ctx, res, object)
}

func (s *store) SetNotified(ctx context.Context, subID int64, notified bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sub_objects SET notified = ? WHERE id = ?`, notified, subID)
	if err != nil {
		return fmt.Errorf("update notified: %w", err)
	}
	return expectRow(res, domain.ErrSubObjectNotFound)
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *store) Close() error {
	return s.db.Close()
}

// subObjectResult tells a missing parent apart from a missing sub-object
// when a statement addressed by (object, sub) touched nothing.
func (s *store) subObjectResult(ctx context.Context, res sql.Result, object string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM objects WHERE name = ?`, object); err != nil {
		return fmt.Errorf("check object: %w", err)
	}
	if count == 0 {
		return domain.ErrObjectNotFound
	}
	return domain.ErrSubObjectNotFound
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
