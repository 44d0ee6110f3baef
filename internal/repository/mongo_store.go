package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"echoeditor/internal/model"
)

// MongoStore is the durable SessionStore backend. Presence mutations use
// single-document update operators, so MongoDB serializes concurrent
// writes to the same room.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a SessionStore backed by the sessions collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("sessions"),
	}
}

func (s *MongoStore) Get(ctx context.Context, roomID string) (*model.Session, error) {
	var session model.Session
	err := s.collection.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MongoStore) CreateIfAbsent(ctx context.Context, roomID string, defaults model.SessionDefaults) (*model.Session, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"roomId":       roomID,
			"title":        defaults.Title,
			"code":         defaults.Code,
			"language":     defaults.Language,
			"activeUsers":  bson.A{},
			"createdAt":    now,
			"lastModified": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var session model.Session
	if err := s.collection.FindOneAndUpdate(ctx, bson.M{"roomId": roomID}, update, opts).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MongoStore) SetCode(ctx context.Context, roomID, code string) error {
	return s.setField(ctx, roomID, "code", code)
}

func (s *MongoStore) SetLanguage(ctx context.Context, roomID, language string) error {
	return s.setField(ctx, roomID, "language", language)
}

func (s *MongoStore) setField(ctx context.Context, roomID, field string, value interface{}) error {
	res, err := s.collection.UpdateOne(ctx, bson.M{"roomId": roomID}, bson.M{
		"$set": bson.M{field: value, "lastModified": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddOrReplaceUser is a pull-then-push: the $pull drops any stale entry for
// the userId, the $push appends the fresh one. Each step is a
// single-document atomic update, so concurrent joins to the same room
// cannot drop each other.
func (s *MongoStore) AddOrReplaceUser(ctx context.Context, roomID string, user model.PresenceUser) (*model.Session, error) {
	filter := bson.M{"roomId": roomID}
	if _, err := s.collection.UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"activeUsers": bson.M{"userId": user.UserID}},
	}); err != nil {
		return nil, err
	}

	update := bson.M{
		"$push": bson.M{"activeUsers": user},
		"$set":  bson.M{"lastModified": time.Now().UTC()},
	}
	return s.findAndUpdate(ctx, filter, update)
}

func (s *MongoStore) RemoveUser(ctx context.Context, roomID, userID string) (*model.Session, error) {
	update := bson.M{
		"$pull": bson.M{"activeUsers": bson.M{"userId": userID}},
		"$set":  bson.M{"lastModified": time.Now().UTC()},
	}
	return s.findAndUpdate(ctx, bson.M{"roomId": roomID}, update)
}

func (s *MongoStore) ReplaceUsers(ctx context.Context, roomID string, users []model.PresenceUser) (*model.Session, error) {
	if users == nil {
		users = []model.PresenceUser{}
	}
	update := bson.M{
		"$set": bson.M{"activeUsers": users, "lastModified": time.Now().UTC()},
	}
	return s.findAndUpdate(ctx, bson.M{"roomId": roomID}, update)
}

func (s *MongoStore) findAndUpdate(ctx context.Context, filter, update bson.M) (*model.Session, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session model.Session
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
