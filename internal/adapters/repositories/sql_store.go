package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements ports.UnitOfWork over database/sql. Postgres
// transactions run serializable so the vehicle availability check and the
// segment write cannot interleave with a concurrent assignment.
type SQLStore struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLStore(conn *sql.DB, dialect db.Dialect) *SQLStore {
	return &SQLStore{DB: conn, Dialect: dialect}
}

func (s *SQLStore) Do(
	ctx context.Context,
	fn func(ctx context.Context, repos ports.Repositories) error,
) (err error) {
	defer obs.Time(ctx, "store.tx")(&err)

	if s.DB == nil {
		return errors.New("sql store: DB is nil")
	}

	opts := &sql.TxOptions{}
	if s.Dialect == db.Postgres {
		opts.Isolation = sql.LevelSerializable
	}

	tx, err := s.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("sql store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, s.repositories(tx)); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("sql store: commit tx: %w", err))
	}

	return nil
}

func (s *SQLStore) repositories(q queryer) ports.Repositories {
	return ports.Repositories{
		Routes:   &sqlRouteRepository{q: q, dialect: s.Dialect},
		Options:  &sqlOptionStore{q: q, dialect: s.Dialect},
		Vehicles: &sqlVehicleRegistry{q: q, dialect: s.Dialect},
	}
}

// classify maps storage conflicts onto domain error kinds.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: concurrent update, retry: %v", domain.ErrState, err)
	}
	if isUniqueViolation(err) && !errors.Is(err, domain.ErrValidation) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// forUpdate appends a row lock on dialects that support it.
func forUpdate(dialect db.Dialect) string {
	if dialect == db.Postgres {
		return " FOR UPDATE"
	}
	return ""
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}

func nullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func float64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
