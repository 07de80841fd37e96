package store

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

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := pingOrDisconnect(ctx, client); err != nil {
		return nil, err
	}

	return client.Database(database), nil
}

type mongoClient interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// pingOrDisconnect releases the client's pools when the server cannot be reached.
func pingOrDisconnect(ctx context.Context, client mongoClient) error {
	err := client.Ping(ctx, nil)
	if err == nil {
		return nil
	}
	if derr := client.Disconnect(context.WithoutCancel(ctx)); derr != nil {
		err = errors.Join(err, derr)
	}
	return fmt.Errorf("failed to ping MongoDB: %w", err)
}

type collectionDocument struct {
	Name      string    `bson:"_id"`
	Records   string    `bson:"records"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per collection. It has no Apply: writes spanning two
// documents are not atomic here.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("collections"),
	}
}

func (m *MongoStore) Get(ctx context.Context, collection string) ([]byte, error) {
	var doc collectionDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": collection}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return []byte(doc.Records), nil
}

func (m *MongoStore) Set(ctx context.Context, collection string, data []byte) error {
	update := bson.M{"$set": bson.M{
		"records":    string(data),
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": collection}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert collection: %w", err)
	}
	return nil
}

func (m *MongoStore) Remove(ctx context.Context, collection string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": collection}); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}
