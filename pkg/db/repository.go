package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/security"
	_ "modernc.org/sqlite"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so reads and inserts can
// run either standalone or inside a migration transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides database operations for launcher layouts
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository opens the database at dbPath and makes sure every table in
// tables exists
func NewRepository(dbPath string, tables ...string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	// A single connection keeps the migration transaction and any reads made
	// while it is open on the same SQLite handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	repo := &Repository{db: db, path: dbPath}
	for _, table := range tables {
		if err := repo.CreateTable(context.Background(), table); err != nil {
			db.Close()
			return nil, err
		}
	}

	slog.Info("database_ready", "db_path", dbPath, "tables", tables)
	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying handle as a Querier
func (r *Repository) DB() Querier {
	return r.db
}

// Path returns the database file path
func (r *Repository) Path() string {
	return r.path
}

// BeginTx starts a transaction on the database
func (r *Repository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed_to_begin_transaction", "db_path", r.path, "error", err)
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return tx, nil
}

// CreateTable creates a favorites table if it does not exist
func (r *Repository) CreateTable(ctx context.Context, table string) error {
	if err := security.ValidateIdentifier(table); err != nil {
		return errors.Wrap(err, "invalid table name")
	}

	slog.Info("database_create_schema", "db_path", r.path, "table", table)
	if _, err := r.db.ExecContext(ctx, Schema(table)); err != nil {
		slog.Error("database_schema_failed", "table", table, "error", err)
		return errors.Wrapf(err, "failed to create table %s", table)
	}
	return nil
}

// DropTable removes a favorites table if it exists
func (r *Repository) DropTable(ctx context.Context, table string) error {
	if err := security.ValidateIdentifier(table); err != nil {
		return errors.Wrap(err, "invalid table name")
	}

	slog.Info("database_drop_table", "table", table)
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		slog.Error("database_drop_failed", "table", table, "error", err)
		return errors.Wrapf(err, "failed to drop table %s", table)
	}
	return nil
}

// CopyTable replaces the contents of dst with a copy of src, keeping row ids
func (r *Repository) CopyTable(ctx context.Context, src, dst string) error {
	for _, table := range []string{src, dst} {
		if err := security.ValidateIdentifier(table); err != nil {
			return errors.Wrap(err, "invalid table name")
		}
	}

	slog.Info("database_copy_table", "src", src, "dst", dst)

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", dst),
		Schema(dst),
		fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", dst, src),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			slog.Error("database_copy_failed", "src", src, "dst", dst, "error", err)
			return errors.Wrapf(err, "failed to copy %s into %s", src, dst)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed_to_commit_transaction", "error", err)
		return errors.Wrap(err, "failed to commit transaction")
	}

	slog.Info("database_table_copied", "src", src, "dst", dst)
	return nil
}

// TableExists reports whether a table with the given name exists
func TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "failed to query sqlite_master")
	}
	return n > 0, nil
}

// Count returns the number of rows in table
func Count(ctx context.Context, q Querier, table string) (int, error) {
	if err := security.ValidateIdentifier(table); err != nil {
		return 0, errors.Wrap(err, "invalid table name")
	}

	var n int
	if err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "failed to count %s", table)
	}
	return n, nil
}

// ListFavorites retrieves every row of table ordered by id
func ListFavorites(ctx context.Context, q Querier, table string) ([]*Favorite, error) {
	if err := security.ValidateIdentifier(table); err != nil {
		return nil, errors.Wrap(err, "invalid table name")
	}

	slog.Debug("database_list_favorites", "table", table)

	query := fmt.Sprintf(`
		SELECT _id, title, intent, container, screen, cellX, cellY, spanX, spanY,
		       itemType, appWidgetId, appWidgetProvider, rank, modified
		FROM %s ORDER BY _id
	`, table)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		slog.Error("database_list_query_failed", "table", table, "error", err)
		return nil, errors.Wrapf(err, "failed to list %s", table)
	}
	defer rows.Close()

	var favorites []*Favorite
	for rows.Next() {
		var f Favorite
		var title, intent, provider sql.NullString

		err := rows.Scan(
			&f.ID, &title, &intent, &f.Container, &f.Screen, &f.CellX, &f.CellY,
			&f.SpanX, &f.SpanY, &f.ItemType, &f.AppWidgetID, &provider, &f.Rank, &f.Modified)
		if err != nil {
			slog.Error("database_scan_row_failed", "table", table, "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}

		// Handle nullable fields
		f.Title = title.String
		f.Intent = intent.String
		f.AppWidgetProvider = provider.String

		favorites = append(favorites, &f)
	}

	if err := rows.Err(); err != nil {
		slog.Error("database_rows_error", "table", table, "error", err)
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Debug("database_list_complete", "table", table, "row_count", len(favorites))
	return favorites, nil
}

// InsertFavorite inserts f into table and sets f.ID to the new row id
func InsertFavorite(ctx context.Context, q Querier, table string, f *Favorite) error {
	if err := security.ValidateIdentifier(table); err != nil {
		return errors.Wrap(err, "invalid table name")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (title, intent, container, screen, cellX, cellY, spanX, spanY,
		                itemType, appWidgetId, appWidgetProvider, rank, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table)
	result, err := q.ExecContext(ctx, query,
		nullString(f.Title), nullString(f.Intent), f.Container, f.Screen, f.CellX, f.CellY,
		f.SpanX, f.SpanY, f.ItemType, f.AppWidgetID, nullString(f.AppWidgetProvider), f.Rank, f.Modified)
	if err != nil {
		slog.Error("database_insert_failed", "table", table, "intent", f.Intent, "error", err)
		return errors.Wrap(err, "failed to insert favorite")
	}

	id, err := result.LastInsertId()
	if err != nil {
		slog.Error("database_last_insert_id_failed", "table", table, "error", err)
		return errors.Wrap(err, "failed to get last insert id")
	}
	f.ID = id

	slog.Debug("database_favorite_created", "table", table, "id", f.ID, "container", f.Container, "screen", f.Screen)
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
