package notifications

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jobberhq/order-service/internal/orders"
)

// Pusher delivers an (order, notification) frame to the recipient's
// connected sessions. Best effort: offline recipients are silent.
type Pusher interface {
	Emit(ctx context.Context, userTo string, order, notification any)
}

// OrderLookup resolves the order a notification points at, for re-emitting
// on mark-as-read.
type OrderLookup interface {
	ByID(ctx context.Context, orderID string) (orders.Order, error)
}

type Service struct {
	store    Store
	realtime Pusher
	orders   OrderLookup
	log      zerolog.Logger
}

func NewService(store Store, realtime Pusher, orders OrderLookup, log zerolog.Logger) *Service {
	return &Service{store: store, realtime: realtime, orders: orders, log: log}
}

// Send persists a notification for userTo and pushes it to their open
// sessions. The persisted record survives a failed push.
func (s *Service) Send(ctx context.Context, order orders.Order, userTo, message string) (Notification, error) {
	n, err := s.store.Create(ctx, Notification{
		UserTo:           userTo,
		SenderUsername:   order.SellerUsername,
		SenderPicture:    order.SellerImage,
		ReceiverUsername: order.BuyerUsername,
		ReceiverPicture:  order.BuyerImage,
		Message:          message,
		OrderID:          order.OrderID,
	})
	if err != nil {
		return Notification{}, err
	}
	s.realtime.Emit(ctx, userTo, order, n)
	return n, nil
}

// Notify satisfies the orchestrator's notifier contract.
func (s *Service) Notify(ctx context.Context, order orders.Order, userTo, message string) error {
	_, err := s.Send(ctx, order, userTo, message)
	return err
}

func (s *Service) ByRecipient(ctx context.Context, userTo string) ([]Notification, error) {
	return s.store.ByRecipient(ctx, userTo)
}

// MarkAsRead marks the notification read and re-pushes it with its order so
// other open sessions of the same user converge.
func (s *Service) MarkAsRead(ctx context.Context, id string) (Notification, error) {
	n, err := s.store.MarkAsRead(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	order, err := s.orders.ByID(ctx, n.OrderID)
	if err != nil {
		s.log.Warn().Err(err).Str("orderId", n.OrderID).Msg("order lookup for read notification failed")
		return n, nil
	}
	s.realtime.Emit(ctx, n.UserTo, order, n)
	return n, nil
}
