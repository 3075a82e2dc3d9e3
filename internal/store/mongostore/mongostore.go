// internal/store/mongostore/mongostore.go
//
// Direct document-driver adapter.
//
// Context
// -------
// Serverless hosts freeze processes between requests, so a pooled client
// goes stale.  Each Store method therefore opens its own client, runs one
// command, and disconnects in a defer, matching the lifecycle of the HTTP
// request that triggered it.  Documents are keyed by `_id`.
//
// Notes
// -----
//   - Duplicate `_id` inserts map to store.ErrConflict.
//   - Oxford commas, two spaces after periods.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

var _ store.Store = (*Store)(nil)

// ErrNoURI is returned by New when no connection string is configured.
var ErrNoURI = errors.New("mongostore: connection uri is required")

// Config names the server and target collection.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

type Store struct {
	cfg Config
}

// New validates cfg and fills defaults.  No connection is made.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, ErrNoURI
	}
	if cfg.Database == "" {
		cfg.Database = store.DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = store.DefaultCollection
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Store{cfg: cfg}, nil
}

type document struct {
	ID        string `bson:"_id"`
	API       string `bson:"api"`
	Name      string `bson:"name"`
	Adult     bool   `bson:"adult"`
	CreatedAt string `bson:"createdAt,omitempty"`
	UpdatedAt string `bson:"updatedAt,omitempty"`
}

func (d document) record() site.Record {
	return site.Record{ID: d.ID, API: d.API, Name: d.Name, Adult: d.Adult, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

// with opens a client, hands fn the collection, and always disconnects.
func (s *Store) with(ctx context.Context, fn func(*mongo.Collection) error) error {
	opts := options.Client().
		ApplyURI(s.cfg.URI).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetServerSelectionTimeout(s.cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("mongostore: connect: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			zap.S().Warnw("mongo disconnect failed", "err", err)
		}
	}()

	return fn(client.Database(s.cfg.Database).Collection(s.cfg.Collection))
}

func (s *Store) FindOne(ctx context.Context, id string) (*site.Record, error) {
	var doc document
	err := s.with(ctx, func(c *mongo.Collection) error {
		return c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := doc.record()
	return &rec, nil
}

func (s *Store) FindAll(ctx context.Context) ([]site.Record, error) {
	var docs []document
	err := s.with(ctx, func(c *mongo.Collection) error {
		cur, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	out := make([]site.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record())
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, rec site.Record) error {
	doc := document{ID: rec.ID, API: rec.API, Name: rec.Name, Adult: rec.Adult, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
	err := s.with(ctx, func(c *mongo.Collection) error {
		_, err := c.InsertOne(ctx, doc)
		return err
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) UpdateFields(ctx context.Context, id string, f site.Fields) error {
	var matched int64
	err := s.with(ctx, func(c *mongo.Collection) error {
		res, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
			"api":       f.API,
			"name":      f.Name,
			"adult":     f.Adult,
			"updatedAt": f.UpdatedAt,
		}})
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := s.with(ctx, func(c *mongo.Collection) error {
		res, err := c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return store.ErrNotFound
	}
	return nil
}

// EnsureSchema pings the server; collections are created on first insert.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.with(ctx, func(c *mongo.Collection) error {
		return c.Database().Client().Ping(ctx, nil)
	})
}

// Close is a no-op; there is no long-lived client.
func (s *Store) Close() error { return nil }
