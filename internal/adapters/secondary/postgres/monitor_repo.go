package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"status-notification/internal/core/domain"
	output "status-notification/internal/core/ports/output"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dbPool is the subset of *pgxpool.Pool the repository uses.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type monitorRepo struct {
	pool dbPool
}

// NewMonitorRepository creates a MonitorRepository backed by pool.
func NewMonitorRepository(pool *pgxpool.Pool) output.MonitorRepository {
	return newMonitorRepo(pool)
}

func newMonitorRepo(pool dbPool) *monitorRepo {
	return &monitorRepo{pool: pool}
}

// Migrate brings the schema at databaseURL up to date. It uses its own
// short-lived connection so the pool is never borrowed by the migrator.
func Migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (r *monitorRepo) Touch(ctx context.Context, object, sub string, at time.Time) error {
	query := `
		WITH obj AS (
			INSERT INTO objects (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		)
		INSERT INTO sub_objects (object_id, name, last_update, notified)
		SELECT id, $2, $3, FALSE FROM obj
		ON CONFLICT (object_id, name) DO UPDATE SET last_update = EXCLUDED.last_update
	`

	_, err := r.pool.Exec(ctx, query, object, sub, at.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// Object deleted between the two inserts.
			return domain.ErrObjectNotFound
		}
		return fmt.Errorf("touch sub-object: %w", err)
	}
	return nil
}

func (r *monitorRepo) ListObjects(ctx context.Context) ([]*domain.Object, error) {
	query := `
		SELECT o.id, o.name, o.paused,
			s.id, s.name, s.last_update, s.notified, s.paused
		FROM objects o
		LEFT JOIN sub_objects s ON s.object_id = o.id
		ORDER BY o.id, s.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var objects []*domain.Object
	var current *domain.Object
	for rows.Next() {
		var (
			objID      int64
			objName    string
			objPaused  bool
			subID      *int64
			subName    *string
			lastUpdate *time.Time
			notified   *bool
			subPaused  *bool
		)
		if err := rows.Scan(
			&objID, &objName, &objPaused,
			&subID, &subName, &lastUpdate, &notified, &subPaused,
		); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}

		if current == nil || current.ID != objID {
			current = &domain.Object{
				ID:       objID,
				Name:     objName,
				Paused:   objPaused,
				Children: []*domain.SubObject{},
			}
			objects = append(objects, current)
		}
		if subID == nil {
			continue
		}

		sub := &domain.SubObject{
			ID:       *subID,
			ObjectID: objID,
			Name:     *subName,
			Notified: notified != nil && *notified,
			Paused:   subPaused != nil && *subPaused,
		}
		if lastUpdate != nil {
			ts := lastUpdate.UTC()
			sub.LastUpdate = &ts
		}
		current.Children = append(current.Children, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object rows: %w", err)
	}

	if objects == nil {
		objects = []*domain.Object{}
	}
	return objects, nil
}

func (r *monitorRepo) SetObjectPaused(ctx context.Context, object string, paused bool) error {
	query := `UPDATE objects SET paused = $1 WHERE name = $2`

	result, err := r.pool.Exec(ctx, query, paused, object)
	if err != nil {
		return fmt.Errorf("update object paused: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrObjectNotFound
	}
	return nil
}

func (r *monitorRepo) SetSubObjectPaused(ctx context.Context, object, sub string, paused bool) error {
	query := `
		UPDATE sub_objects SET paused = $1
		WHERE name = $2 AND object_id = (SELECT id FROM objects WHERE name = $3)
	`

	result, err := r.pool.Exec(ctx, query, paused, sub, object)
	if err != nil {
		return fmt.Errorf("update sub-object paused: %w", err)
	}
	return r.subObjectResult(ctx, result, object)
}

func (r *monitorRepo) DeleteObject(ctx context.Context, object string) error {
	// sub_objects rows go with it through ON DELETE CASCADE.
	query := `DELETE FROM objects WHERE name = $1`

	result, err := r.pool.Exec(ctx, query, object)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrObjectNotFound
	}
	return nil
}

func (r *monitorRepo) DeleteSubObject(ctx context.Context, object, sub string) error {
	query := `
		DELETE FROM sub_objects
		WHERE name = $1 AND object_id = (SELECT id FROM objects WHERE name = $2)
	`

	result, err := r.pool.Exec(ctx, query, sub, object)
	if err != nil {
		return fmt.Errorf("delete sub-object: %w", err)
	}
	return r.subObjectResult(ctx, result, object)
}

func (r *monitorRepo) SetNotified(ctx context.Context, subID int64, notified bool) error {
	query := `UPDATE sub_objects SET notified = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, notified, subID)
	if err != nil {
		return fmt.Errorf("update notified: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSubObjectNotFound
	}
	return nil
}

func (r *monitorRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *monitorRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *monitorRepo) subObjectResult(ctx context.Context, result pgconn.CommandTag, object string) error {
	if result.RowsAffected() > 0 {
		return nil
	}

	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM objects WHERE name = $1`, object).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("check object: %w", err)
	}
	return domain.ErrSubObjectNotFound
}
