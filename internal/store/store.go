// Package store is the data access layer: one Repository per collection,
// backed by MongoDB, PostgreSQL JSONB tables, or process memory.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"construction-api/internal/models"
)

// Collection names.
const (
	ProjectsCollection  = "projects"
	SuppliersCollection = "suppliers"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document is implemented by every persisted type.
type Document interface {
	DocumentID() primitive.ObjectID
	Created() time.Time
}

// Repository is the set of operations the handlers and the bulk loader need
// from one collection.
type Repository[T Document] interface {
	// List returns every document, most recently created first.
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, doc T) error
	FindByID(ctx context.Context, id string) (T, error)
	// Update overwrites only the given fields and returns the updated document.
	Update(ctx context.Context, id string, fields map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
	// InsertMany inserts without stopping at the first failure and reports
	// how many documents were written.
	InsertMany(ctx context.Context, docs []T) (int, error)
}

// DB is the process-wide store handle.
type DB struct {
	Projects  Repository[models.Project]
	Suppliers Repository[models.Supplier]
	Driver    string

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (db *DB) Ping(ctx context.Context) error {
	if db.ping == nil {
		return nil
	}
	return db.ping(ctx)
}

func (db *DB) Close(ctx context.Context) error {
	if db.close == nil {
		return nil
	}
	return db.close(ctx)
}

// Options selects and configures a backend.
type Options struct {
	Driver         string
	MongoURI       string
	Database       string
	PostgresDSN    string
	ConnectTimeout time.Duration
}

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	switch opts.Driver {
	case "", DriverMongo:
		return openMongo(ctx, opts)
	case DriverPostgres:
		return openPostgres(ctx, opts)
	case DriverMemory:
		return NewMemoryDB(), nil
	default:
		return nil, errors.Errorf("unknown store driver %q", opts.Driver)
	}
}

// Supported drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// parseID maps a malformed id to ErrNotFound; no document can have it.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}
