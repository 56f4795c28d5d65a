package infra

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Row is the single-row result returned by SQLExecutor.QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// Rows is the cursor returned by SQLExecutor.Query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// SQLExecutor defines the contract repositories use for executing SQL.
// Every query must start with a `--sql <uuid>` marker line.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

var (
	markerRegexp      = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	placeholderRegexp = regexp.MustCompile(`\$(\d+)`)
)

type SQLRunner struct {
	DB      *sql.DB
	Dialect Dialect
	Logger  zerolog.Logger
}

func NewSQLRunner(db *sql.DB, dialect Dialect, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{DB: db, Dialect: dialect, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	marker, trimmed, err := r.prepare(query)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug().Msgf("sql[%s] exec", marker)
	res, err := r.DB.ExecContext(ctx, trimmed, args...)
	if err != nil {
		r.Logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return nil, err
	}
	return res, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) Row {
	marker, trimmed, err := r.prepare(query)
	if err != nil {
		return errorRow{err: err}
	}
	r.Logger.Debug().Msgf("sql[%s] query_row", marker)
	row := r.DB.QueryRowContext(ctx, trimmed, args...)
	return loggingRow{row: row, logger: r.Logger, marker: marker}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	marker, trimmed, err := r.prepare(query)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug().Msgf("sql[%s] query", marker)
	rows, err := r.DB.QueryContext(ctx, trimmed, args...)
	if err != nil {
		r.Logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return nil, err
	}
	return loggingRows{Rows: rows, logger: r.Logger, marker: marker}, nil
}

// prepare strips the marker and rewrites $N placeholders to SQLite's ?N form.
func (r *SQLRunner) prepare(query string) (string, string, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return "", "", err
	}
	if r.Dialect == DialectSQLite {
		trimmed = placeholderRegexp.ReplaceAllString(trimmed, "?$1")
	}
	return marker, trimmed, nil
}

type loggingRow struct {
	row    *sql.Row
	logger zerolog.Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		l.logger.Error().Err(err).Msgf("sql[%s] scan error", l.marker)
	}
	return err
}

type loggingRows struct {
	*sql.Rows
	logger zerolog.Logger
	marker string
}

func (l loggingRows) Close() error {
	l.logger.Debug().Msgf("sql[%s] rows close", l.marker)
	return l.Rows.Close()
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	lines := strings.Split(trimmed, "\n")
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", errors.New("sql marker missing or invalid")
	}
	return strings.TrimSpace(strings.TrimPrefix(markerLine, "--sql ")), strings.Join(lines[1:], "\n"), nil
}

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation recognises unique-constraint failures from either driver.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ SQLExecutor = (*SQLRunner)(nil)
