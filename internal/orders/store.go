package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persistence contract the orchestrator depends on. Every
// mutation is a single atomic conditional update keyed by orderId; the store
// is the serialization point for per-order consistency.
type Store interface {
	Create(ctx context.Context, order Order) (Order, error)
	ByID(ctx context.Context, orderID string) (Order, error)
	BySeller(ctx context.Context, sellerID string) ([]Order, error)
	ByBuyer(ctx context.Context, buyerID string) ([]Order, error)

	Cancel(ctx context.Context, orderID string, at time.Time) (Order, error)
	Approve(ctx context.Context, orderID string, at time.Time) (Order, error)
	Deliver(ctx context.Context, orderID string, work DeliveredWork, at time.Time) (Order, error)
	SetExtensionRequest(ctx context.Context, orderID string, ext RequestExtension) (Order, error)
	ApproveExtension(ctx context.Context, orderID string, ext RequestExtension, at time.Time) (Order, error)
	RejectExtension(ctx context.Context, orderID string) (Order, error)
	SetReview(ctx context.Context, orderID, reviewType string, review Review) (Order, error)
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("orders")}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) Create(ctx context.Context, order Order) (Order, error) {
	if _, err := s.col.InsertOne(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *MongoStore) ByID(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := s.col.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *MongoStore) BySeller(ctx context.Context, sellerID string) ([]Order, error) {
	return s.find(ctx, bson.M{"sellerId": sellerID})
}

func (s *MongoStore) ByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return s.find(ctx, bson.M{"buyerId": buyerID})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]Order, error) {
	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status-changing updates only match orders the state machine allows the
// transition from; a miss surfaces as ErrNotFound and the caller decides.
func transitionFilter(orderID string, to Status) bson.M {
	return bson.M{"orderId": orderID, "status": bson.M{"$in": statusesAllowing(to)}}
}

func (s *MongoStore) Cancel(ctx context.Context, orderID string, at time.Time) (Order, error) {
	update := bson.M{"$set": bson.M{
		"cancelled":  true,
		"status":     StatusCancelled,
		"approvedAt": at,
	}}
	return s.findOneAndUpdate(ctx, transitionFilter(orderID, StatusCancelled), update)
}

func (s *MongoStore) Approve(ctx context.Context, orderID string, at time.Time) (Order, error) {
	update := bson.M{"$set": bson.M{
		"approved":   true,
		"status":     StatusCompleted,
		"approvedAt": at,
	}}
	return s.findOneAndUpdate(ctx, transitionFilter(orderID, StatusCompleted), update)
}

func (s *MongoStore) Deliver(ctx context.Context, orderID string, work DeliveredWork, at time.Time) (Order, error) {
	update := bson.M{
		"$set": bson.M{
			"delivered":             true,
			"status":                StatusDelivered,
			"events.orderDelivered": at,
		},
		"$push": bson.M{"deliveredWork": work},
	}
	return s.findOneAndUpdate(ctx, transitionFilter(orderID, StatusDelivered), update)
}

func (s *MongoStore) SetExtensionRequest(ctx context.Context, orderID string, ext RequestExtension) (Order, error) {
	update := bson.M{"$set": bson.M{
		"requestExtension.originalDate": ext.OriginalDate,
		"requestExtension.newDate":      ext.NewDate,
		"requestExtension.days":         ext.Days,
		"requestExtension.reason":       ext.Reason,
	}}
	return s.findOneAndUpdate(ctx, bson.M{"orderId": orderID}, update)
}

// ApproveExtension only matches orders whose extension slot holds a pending
// request; the caller decides how a miss is surfaced.
func (s *MongoStore) ApproveExtension(ctx context.Context, orderID string, ext RequestExtension, at time.Time) (Order, error) {
	filter := bson.M{"orderId": orderID, "requestExtension.days": bson.M{"$gt": 0}}
	update := bson.M{
		"$inc": bson.M{"offer.deliveryInDays": ext.Days},
		"$set": bson.M{
			"offer.oldDeliveryDate":     ext.OriginalDate,
			"offer.newDeliveryDate":     ext.NewDate,
			"offer.reason":              ext.Reason,
			"events.deliveryDateUpdate": at,
			"requestExtension":          RequestExtension{},
		},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *MongoStore) RejectExtension(ctx context.Context, orderID string) (Order, error) {
	filter := bson.M{"orderId": orderID, "requestExtension.days": bson.M{"$gt": 0}}
	update := bson.M{"$set": bson.M{"requestExtension": RequestExtension{}}}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *MongoStore) SetReview(ctx context.Context, orderID, reviewType string, review Review) (Order, error) {
	field, eventField := "sellerReview", "events.sellerReview"
	if reviewType == ReviewTypeBuyer {
		field, eventField = "buyerReview", "events.buyerReview"
	}
	update := bson.M{"$set": bson.M{
		field:      review,
		eventField: review.Created,
	}}
	return s.findOneAndUpdate(ctx, bson.M{"orderId": orderID}, update)
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o Order
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}
