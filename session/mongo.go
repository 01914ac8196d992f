package session

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

const (
	defaultMongoDatabase   = "flora"
	defaultMongoCollection = "chat_sessions"
)

type mongoDocument struct {
	ID    string   `bson:"_id"`
	Turns []record `bson:"turns"`
}

// MongoStore keeps one document per session with its turns in an array.
// Appends use $push with $each, which MongoDB applies atomically to the
// single document.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongoStore uses an existing client. The caller keeps ownership of the
// client.
func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

// ConnectMongoStore connects to uri and returns a store that closes the
// client on Close.
func ConnectMongoStore(uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %v", ErrStoreFailed, err)
	}
	s := NewMongoStore(client, database, collection)
	s.owned = true
	return s, nil
}

func (s *MongoStore) Messages(ctx context.Context, id string) ([]protocol.Message, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var doc mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []protocol.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return fromRecords(doc.Turns), nil
}

func (s *MongoStore) Append(ctx context.Context, id string, msgs ...protocol.Message) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(msgs) == 0 {
		return nil
	}

	update := bson.M{
		"$push": bson.M{"turns": bson.M{"$each": toRecords(msgs)}},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return nil
}

// Close disconnects the client if the store created it.
func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(context.Background())
}
