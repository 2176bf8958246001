package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"construction-api/internal/models"
)

// DefaultDatabase is used when neither the options nor the URI name one.
const DefaultDatabase = "construction_management"

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// MongoRepository stores documents of type T in one MongoDB collection.
type MongoRepository[T Document] struct {
	coll *mongo.Collection
}

func NewMongoRepository[T Document](coll *mongo.Collection) *MongoRepository[T] {
	return &MongoRepository[T]{coll: coll}
}

func (r *MongoRepository[T]) List(ctx context.Context) ([]T, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.WithStack(err)
	}
	return docs, nil
}

func (r *MongoRepository[T]) Insert(ctx context.Context, doc T) error {
	_, err := r.coll.InsertOne(ctx, doc)
	return errors.WithStack(err)
}

func (r *MongoRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var doc T
	oid, err := parseID(id)
	if err != nil {
		return doc, err
	}
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, ErrNotFound
	}
	return doc, errors.WithStack(err)
}

func (r *MongoRepository[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}
	var doc T
	oid, err := parseID(id)
	if err != nil {
		return doc, err
	}
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, ErrNotFound
	}
	return doc, errors.WithStack(err)
}

func (r *MongoRepository[T]) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.WithStack(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository[T]) InsertMany(ctx context.Context, docs []T) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	items := make([]any, len(docs))
	for i := range docs {
		items[i] = docs[i]
	}
	_, err := r.coll.InsertMany(ctx, items, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		return len(docs) - len(bulkErr.WriteErrors), errors.WithStack(err)
	}
	return 0, errors.WithStack(err)
}

func openMongo(ctx context.Context, opts Options) (*DB, error) {
	dbName := opts.Database
	if dbName == "" {
		dbName = databaseFromURI(opts.MongoURI)
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(opts.MongoURI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	return newMongoDB(client.Database(dbName)), nil
}

func newMongoDB(db *mongo.Database) *DB {
	client := db.Client()
	return &DB{
		Projects:  NewMongoRepository[models.Project](db.Collection(ProjectsCollection)),
		Suppliers: NewMongoRepository[models.Supplier](db.Collection(SuppliersCollection)),
		Driver:    DriverMongo,
		ping: func(ctx context.Context) error {
			return errors.WithStack(client.Ping(ctx, readpref.Primary()))
		},
		close: func(ctx context.Context) error {
			return errors.WithStack(client.Disconnect(ctx))
		},
	}
}

func databaseFromURI(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return DefaultDatabase
	}
	return cs.Database
}
