package notifications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("notification not found")

type Store interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	ByRecipient(ctx context.Context, userTo string) ([]Notification, error)
	MarkAsRead(ctx context.Context, id string) (Notification, error)
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("ordernotifications")}
}

var _ Store = (*MongoStore)(nil)

// Create assigns the id and creation timestamp.
func (s *MongoStore) Create(ctx context.Context, n Notification) (Notification, error) {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	if _, err := s.col.InsertOne(ctx, n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *MongoStore) ByRecipient(ctx context.Context, userTo string) ([]Notification, error) {
	cur, err := s.col.Find(ctx, bson.M{"userTo": userTo})
	if err != nil {
		return nil, err
	}
	var out []Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAsRead is idempotent: re-marking an already read notification succeeds
// and returns the same record.
func (s *MongoStore) MarkAsRead(ctx context.Context, id string) (Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Notification{}, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n Notification
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"isRead": true}},
		opts,
	).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Notification{}, ErrNotFound
	}
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}
