package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoTable stores one document per note, keyed by a unique noteId index.
type MongoTable struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoTable connects, pings the primary and ensures the noteId index.
func NewMongoTable(ctx context.Context, cfg MongoConfig) (*MongoTable, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "noteId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create noteId index: %w", err)
	}
	return &MongoTable{client: client, coll: coll}, nil
}

func (t *MongoTable) Put(ctx context.Context, item Item) error {
	fields, err := item.Fields()
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	_, err = t.coll.ReplaceOne(ctx,
		bson.M{"noteId": item.NoteID},
		bson.M(fields),
		options.Replace().SetUpsert(true),
	)
	return err
}

func (t *MongoTable) Get(ctx context.Context, noteID string) (Item, error) {
	var doc bson.M
	err := t.coll.FindOne(ctx, bson.M{"noteId": noteID}, options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return itemFromFields(doc)
}

func (t *MongoTable) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.client.Disconnect(ctx)
}
