package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/linkscout/internal/types"
)

// MongoHistory stores entries in a MongoDB collection.
type MongoHistory struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoHistory connects to uri and verifies the connection.
func NewMongoHistory(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoHistory{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_history"),
	}, nil
}

func (s *MongoHistory) Name() string { return "mongodb" }

func (s *MongoHistory) Record(ctx context.Context, entry *types.HistoryEntry) error {
	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert: %w", err)}
	}
	s.logger.Debug("history entry stored", "id", entry.ID, "url", entry.URL)
	return nil
}

func (s *MongoHistory) List(ctx context.Context, limit int) ([]*types.HistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find: %w", err)}
	}
	defer cur.Close(ctx)

	out := []*types.HistoryEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

func (s *MongoHistory) Close() error {
	s.logger.Info("mongodb history closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
