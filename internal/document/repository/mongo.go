package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabpad/collabpad/internal/document"
)

// MongoRepo implements a MongoDB-backed repository for documents.
// Documents are keyed by their caller-supplied string id stored in _id, so the
// collection's primary index enforces the one-record-per-id invariant.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetOrCreate returns the existing record or inserts an empty one attributed to
// creatorUserID. $setOnInsert + upsert makes concurrent first access race-free:
// whichever call loses the race still reads back the single stored record.
func (m *MongoRepo) GetOrCreate(ctx context.Context, id, creatorUserID string) (*document.Document, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": id}
	update := bson.M{"$setOnInsert": bson.M{
		"content":        "",
		"lastModified":   now,
		"lastModifiedBy": creatorUserID,
		"activeUsers":    []document.PresenceEntry{},
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var d document.Document
	if err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) UpdateContent(ctx context.Context, id, content, userID string) error {
	set := bson.M{"content": content, "lastModified": time.Now().UTC(), "lastModifiedBy": userID}
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts)
	return err
}

func (m *MongoRepo) UpdateActiveUsers(ctx context.Context, id string, entries []document.PresenceEntry) error {
	if entries == nil {
		entries = []document.PresenceEntry{}
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"activeUsers": entries}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
