package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"construction-api/internal/models"
)

// PostgresRepository keeps documents as JSONB rows in a table named after the
// collection. id and created_at are duplicated into columns for lookup and
// ordering.
type PostgresRepository[T Document] struct {
	db    *sql.DB
	table string
}

func NewPostgresRepository[T Document](db *sql.DB, table string) *PostgresRepository[T] {
	return &PostgresRepository[T]{db: db, table: table}
}

// EnsureTable creates the backing table if it does not exist yet.
func (r *PostgresRepository[T]) EnsureTable(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			data       JSONB NOT NULL
		)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_created_at_idx ON %[1]s (created_at DESC, id DESC)`, r.table),
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "creating table %s", r.table)
		}
	}
	return nil
}

func (r *PostgresRepository[T]) List(ctx context.Context) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT data FROM %s ORDER BY created_at DESC, id DESC`, r.table))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	docs := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.WithStack(err)
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.WithStack(err)
		}
		docs = append(docs, doc)
	}
	return docs, errors.WithStack(rows.Err())
}

func (r *PostgresRepository[T]) Insert(ctx context.Context, doc T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, created_at, data) VALUES ($1, $2, $3)`, r.table),
		doc.DocumentID().Hex(), doc.Created(), data)
	return errors.WithStack(err)
}

func (r *PostgresRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var doc T
	oid, err := parseID(id)
	if err != nil {
		return doc, err
	}
	var raw []byte
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT data FROM %s WHERE id = $1`, r.table), oid.Hex()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, errors.WithStack(err)
	}
	return doc, errors.WithStack(json.Unmarshal(raw, &doc))
}

// Update merges the fields into the stored JSONB in a single statement.
func (r *PostgresRepository[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}
	var doc T
	oid, err := parseID(id)
	if err != nil {
		return doc, err
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return doc, errors.WithStack(err)
	}
	var raw []byte
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(
		`UPDATE %s SET data = data || $1::jsonb WHERE id = $2 RETURNING data`, r.table),
		patch, oid.Hex()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, errors.WithStack(err)
	}
	return doc, errors.WithStack(json.Unmarshal(raw, &doc))
}

func (r *PostgresRepository[T]) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), oid.Hex())
	if err != nil {
		return errors.WithStack(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertMany inserts row by row and keeps going past failed rows.
func (r *PostgresRepository[T]) InsertMany(ctx context.Context, docs []T) (int, error) {
	inserted := 0
	var failures []string
	for _, doc := range docs {
		if err := r.Insert(ctx, doc); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", doc.DocumentID().Hex(), errors.Cause(err)))
			continue
		}
		inserted++
	}
	if len(failures) > 0 {
		return inserted, errors.Errorf("%d of %d inserts into %s failed: %v", len(failures), len(docs), r.table, failures)
	}
	return inserted, nil
}

func openPostgres(ctx context.Context, opts Options) (*DB, error) {
	if opts.PostgresDSN == "" {
		return nil, errors.New("postgres driver requires a DSN")
	}
	db, err := sql.Open("pgx", opts.PostgresDSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}

	out, err := newPostgresDB(pingCtx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return out, nil
}

func newPostgresDB(ctx context.Context, db *sql.DB) (*DB, error) {
	projects := NewPostgresRepository[models.Project](db, ProjectsCollection)
	suppliers := NewPostgresRepository[models.Supplier](db, SuppliersCollection)
	if err := projects.EnsureTable(ctx); err != nil {
		return nil, err
	}
	if err := suppliers.EnsureTable(ctx); err != nil {
		return nil, err
	}
	return &DB{
		Projects:  projects,
		Suppliers: suppliers,
		Driver:    DriverPostgres,
		ping: func(ctx context.Context) error {
			return errors.WithStack(db.PingContext(ctx))
		},
		close: func(context.Context) error {
			return errors.WithStack(db.Close())
		},
	}, nil
}
