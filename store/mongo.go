package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordsCollection = "records"

// maxVersionRetries bounds optimistic update retries
const maxVersionRetries = 20

type mongoRecord struct {
	Key     string `bson:"_id"`
	Index   string `bson:"index,omitempty"`
	Version int64  `bson:"version"`
	Data    []byte `bson:"data"`
}

// Mongo is a Backend on one collection. Each document carries a version that
// updates compare-and-swap on.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects, pings and ensures the index lookup is indexed
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(database).Collection(recordsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "index", Value: 1}}})
	if err != nil {
		return nil, fmt.Errorf("mongo create index: %w", err)
	}
	return &Mongo{client: client, coll: coll}, nil
}

func (m *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	var rec mongoRecord
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (m *Mongo) Put(ctx context.Context, key, index string, data []byte) error {
	set := bson.M{"data": data}
	if index != "" {
		set["index"] = index
	}
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	for i := 0; i < maxVersionRetries; i++ {
		var rec mongoRecord
		err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err := fn(rec.Data)
		if err != nil {
			return err
		}

		res, err := m.coll.UpdateOne(ctx,
			bson.M{"_id": key, "version": rec.Version},
			bson.M{"$set": bson.M{"data": next}, "$inc": bson.M{"version": 1}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return fmt.Errorf("update %s: too much contention", key)
}

func (m *Mongo) List(ctx context.Context, index string) ([][]byte, error) {
	cur, err := m.coll.Find(ctx, bson.M{"index": index}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var recs []mongoRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Data)
	}
	return out, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
