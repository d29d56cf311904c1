package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jobberhq/order-service/internal/rabbitmq"
)

// Publisher is the fire-and-forget broker contract: delivery is best effort
// and failures are handled inside the publisher, never surfaced here.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte)
}

// Notifier persists a notification for userTo and pushes it to connected
// sessions.
type Notifier interface {
	Notify(ctx context.Context, order Order, userTo, message string) error
}

// PaymentGateway is the opaque payment-provider capability.
type PaymentGateway interface {
	FindOrCreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, customerID string) (clientSecret, intentID string, err error)
	Refund(ctx context.Context, intentID string) error
}

// Uploader stores a delivered-file payload durably. An empty publicID means
// the upload failed.
type Uploader interface {
	Upload(ctx context.Context, payload, name string) (publicID, secureURL string, err error)
}

// Service is the order lifecycle orchestrator. It owns transition sequencing:
// read, compute, persist atomically, then dispatch notifications and
// integration messages.
type Service struct {
	store     Store
	publisher Publisher
	notifier  Notifier
	gateway   PaymentGateway
	uploader  Uploader
	clientURL string
	log       zerolog.Logger
	now       func() time.Time
}

type ServiceConfig struct {
	Store     Store
	Publisher Publisher
	Notifier  Notifier
	Gateway   PaymentGateway
	Uploader  Uploader
	ClientURL string
	Logger    zerolog.Logger
	Now       func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		notifier:  cfg.Notifier,
		gateway:   cfg.Gateway,
		uploader:  cfg.Uploader,
		clientURL: cfg.ClientURL,
		log:       cfg.Logger,
		now:       now,
	}
}

// CancelOrder carries the refund target and the profile linkage released on
// cancellation.
type CancelOrder struct {
	PaymentIntentID string `json:"paymentIntentId"`
	SellerID        string `json:"sellerId"`
	BuyerID         string `json:"buyerId"`
	PurchasedGigID  string `json:"purchasedGigId"`
}

// ApproveOrder carries the seller earnings delta and buyer linkage recorded
// on approval.
type ApproveOrder struct {
	SellerID       string  `json:"sellerId"`
	BuyerID        string  `json:"buyerId"`
	PurchasedGigID string  `json:"purchasedGigId"`
	TotalEarnings  float64 `json:"totalEarnings"`
}

// Create persists a new order as Placed with the service fee computed once,
// then announces it: one ongoing-job increment to the seller profile and the
// two invoice emails, sent concurrently. Publish failures never undo the
// created order.
func (s *Service) Create(ctx context.Context, order Order) (Order, error) {
	order.ServiceFee = ServiceFee(order.Price)
	order.Status = StatusPlaced
	order.Approved = false
	order.Cancelled = false
	order.Delivered = false
	order.RequestExtension = RequestExtension{}
	if order.DateOrdered.IsZero() {
		order.DateOrdered = s.now()
	}

	created, err := s.store.Create(ctx, order)
	if err != nil {
		return Order{}, err
	}

	s.publishJSON(ctx, rabbitmq.ExchangeSellerUpdate, rabbitmq.KeySellerUpdate, SellerUpdate{
		SellerID:    created.SellerID,
		OngoingJobs: 1,
		Type:        TypeCreateOrder,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.marshalAndPublish(gctx, rabbitmq.ExchangeOrderNotification, rabbitmq.KeyOrderEmail,
			s.invoiceEmail(created, strings.ToLower(created.SellerEmail), TemplateOrderPlaced))
	})
	g.Go(func() error {
		return s.marshalAndPublish(gctx, rabbitmq.ExchangeOrderNotification, rabbitmq.KeyOrderEmail,
			s.receiptEmail(created, strings.ToLower(created.BuyerEmail)))
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Str("orderId", created.OrderID).Msg("order emails not published")
	}

	return created, nil
}

// CreatePaymentIntent orchestrates the gateway only; no order is touched.
// The fee is recomputed from the price here rather than read from a persisted
// order, mirroring order creation.
func (s *Service) CreatePaymentIntent(ctx context.Context, email, buyerID string, price float64) (clientSecret, intentID string, err error) {
	customerID, err := s.gateway.FindOrCreateCustomer(ctx, strings.ToLower(email), map[string]string{"buyerId": buyerID})
	if err != nil {
		return "", "", err
	}
	return s.gateway.CreatePaymentIntent(ctx, AmountMinorUnits(price), "usd", customerID)
}

// Cancel refunds the payment intent, then marks the order cancelled and
// releases the profile linkage on both sides.
func (s *Service) Cancel(ctx context.Context, orderID string, data CancelOrder) (Order, error) {
	if err := s.gateway.Refund(ctx, data.PaymentIntentID); err != nil {
		return Order{}, fmt.Errorf("refund payment intent: %w", err)
	}

	order, err := s.store.Cancel(ctx, orderID, s.now())
	if errors.Is(err, ErrNotFound) {
		// A completed order cannot be cancelled; return it unchanged.
		return s.store.ByID(ctx, orderID)
	}
	if err != nil {
		return Order{}, err
	}

	s.publishJSON(ctx, rabbitmq.ExchangeSellerUpdate, rabbitmq.KeySellerUpdate, SellerUpdate{
		SellerID: data.SellerID,
		Type:     TypeCancelOrder,
	})
	s.publishJSON(ctx, rabbitmq.ExchangeBuyerUpdate, rabbitmq.KeyBuyerUpdate, BuyerUpdate{
		BuyerID:        data.BuyerID,
		PurchasedGigID: data.PurchasedGigID,
		Type:           TypeCancelOrder,
	})
	return order, nil
}

// Approve completes the order and credits the seller profile with the
// delivery.
func (s *Service) Approve(ctx context.Context, orderID string, data ApproveOrder) (Order, error) {
	order, err := s.store.Approve(ctx, orderID, s.now())
	if errors.Is(err, ErrNotFound) {
		// Only a delivered order can be approved; anything else stays as is.
		return s.store.ByID(ctx, orderID)
	}
	if err != nil {
		return Order{}, err
	}

	s.publishJSON(ctx, rabbitmq.ExchangeSellerUpdate, rabbitmq.KeySellerUpdate, SellerUpdate{
		SellerID:       data.SellerID,
		OngoingJobs:    -1,
		CompletedJobs:  1,
		TotalEarnings:  data.TotalEarnings,
		RecentDelivery: s.now().Format(time.RFC3339),
		Type:           TypeApproveOrder,
	})
	s.publishJSON(ctx, rabbitmq.ExchangeBuyerUpdate, rabbitmq.KeyBuyerUpdate, BuyerUpdate{
		BuyerID:        data.BuyerID,
		PurchasedGigID: data.PurchasedGigID,
		Type:           TypePurchasedGigs,
	})
	s.notify(ctx, order, order.SellerUsername, "Approved your order delivery")
	return order, nil
}

// Deliver uploads the attached file (if any) before the transition persists;
// an upload failure aborts the delivery. Delivered work is only ever
// appended.
func (s *Service) Deliver(ctx context.Context, orderID string, work DeliveredWork) (Order, error) {
	if work.File != "" {
		name := ""
		if strings.EqualFold(work.FileType, "zip") {
			name = uuid.NewString() + ".zip"
		}
		publicID, secureURL, err := s.uploader.Upload(ctx, work.File, name)
		if err != nil {
			return Order{}, &UploadError{Err: err}
		}
		if publicID == "" {
			return Order{}, &UploadError{}
		}
		work.File = secureURL
	}

	order, err := s.store.Deliver(ctx, orderID, work, s.now())
	if errors.Is(err, ErrNotFound) {
		// Closed orders take no further deliveries.
		return s.store.ByID(ctx, orderID)
	}
	if err != nil {
		return Order{}, err
	}

	s.publishJSON(ctx, rabbitmq.ExchangeOrderNotification, rabbitmq.KeyOrderEmail, OrderDeliveredEmail{
		OrderID:        order.OrderID,
		ReceiverEmail:  strings.ToLower(order.BuyerEmail),
		BuyerUsername:  strings.ToLower(order.BuyerUsername),
		SellerUsername: strings.ToLower(order.SellerUsername),
		Title:          order.Offer.GigTitle,
		Description:    order.Offer.Description,
		OrderURL:       s.orderURL(order.OrderID),
		Template:       TemplateOrderDelivered,
	})
	s.notify(ctx, order, order.BuyerUsername, "Delivered your order")
	return order, nil
}

// RequestExtension writes the negotiation slot without touching status.
func (s *Service) RequestExtension(ctx context.Context, orderID string, ext RequestExtension) (Order, error) {
	order, err := s.store.SetExtensionRequest(ctx, orderID, ext)
	if err != nil {
		return Order{}, err
	}

	s.publishJSON(ctx, rabbitmq.ExchangeOrderNotification, rabbitmq.KeyOrderEmail, OrderExtensionEmail{
		ReceiverEmail:  strings.ToLower(order.BuyerEmail),
		BuyerUsername:  strings.ToLower(order.BuyerUsername),
		SellerUsername: strings.ToLower(order.SellerUsername),
		OriginalDate:   order.RequestExtension.OriginalDate,
		NewDate:        order.RequestExtension.NewDate,
		Reason:         order.RequestExtension.Reason,
		OrderURL:       s.orderURL(order.OrderID),
		Template:       TemplateOrderExtension,
	})
	s.notify(ctx, order, order.BuyerUsername, "Requested for an order delivery date extension")
	return order, nil
}

// ResolveExtension settles a pending extension request. Approving extends the
// offer by the requested days; rejecting only clears the slot. Resolving an
// order with no pending request is a no-op success.
func (s *Service) ResolveExtension(ctx context.Context, orderID, resolution string, ext RequestExtension) (Order, error) {
	approve := resolution == "approve"

	var order Order
	var err error
	if approve {
		order, err = s.store.ApproveExtension(ctx, orderID, ext, s.now())
	} else {
		order, err = s.store.RejectExtension(ctx, orderID)
	}
	if errors.Is(err, ErrNotFound) {
		// Nothing pending: either the order is gone (not found) or the slot
		// was already resolved (idempotent no-op).
		return s.store.ByID(ctx, orderID)
	}
	if err != nil {
		return Order{}, err
	}

	email := OrderExtensionApprovalEmail{
		Subject:        "Sorry: Your extension request was rejected",
		ReceiverEmail:  strings.ToLower(order.SellerEmail),
		BuyerUsername:  strings.ToLower(order.BuyerUsername),
		SellerUsername: strings.ToLower(order.SellerUsername),
		Header:         "Request Rejected",
		Type:           "rejected",
		Message:        "Please contact the buyer for more information",
		OrderURL:       s.orderURL(order.OrderID),
		Template:       TemplateOrderExtensionApproval,
	}
	notice := "Rejected your order delivery date extension request"
	if approve {
		email.Subject = "Congratulations: Your extension request was approved"
		email.Header = "Request Accepted"
		email.Type = "accepted"
		email.Message = "You can continue working on the order"
		notice = "Approved your order delivery date extension request"
	}

	s.publishJSON(ctx, rabbitmq.ExchangeOrderNotification, rabbitmq.KeyOrderEmail, email)
	s.notify(ctx, order, order.SellerUsername, notice)
	return order, nil
}

// ApplyReview consumes an externally originated review event. The party who
// did not write the review gets notified; nothing is published downstream.
func (s *Service) ApplyReview(ctx context.Context, msg ReviewMessage) (Order, error) {
	if msg.Type != ReviewTypeBuyer && msg.Type != ReviewTypeSeller {
		return Order{}, NewValidationError("unknown review type %q", msg.Type)
	}
	created := msg.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	order, err := s.store.SetReview(ctx, msg.OrderID, msg.Type, Review{
		Rating:  msg.Rating,
		Review:  msg.Review,
		Created: created,
	})
	if err != nil {
		return Order{}, err
	}

	recipient := order.BuyerUsername
	if msg.Type == ReviewTypeBuyer {
		recipient = order.SellerUsername
	}
	s.notify(ctx, order, recipient, fmt.Sprintf("Left you a %d star review", msg.Rating))
	return order, nil
}

func (s *Service) OrderByID(ctx context.Context, orderID string) (Order, error) {
	return s.store.ByID(ctx, orderID)
}

func (s *Service) OrdersBySeller(ctx context.Context, sellerID string) ([]Order, error) {
	return s.store.BySeller(ctx, sellerID)
}

func (s *Service) OrdersByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return s.store.ByBuyer(ctx, buyerID)
}

func (s *Service) orderURL(orderID string) string {
	return fmt.Sprintf("%s/orders/%s/activities", s.clientURL, orderID)
}

func (s *Service) invoiceEmail(o Order, receiver, template string) OrderPlacedEmail {
	return OrderPlacedEmail{
		OrderID:        o.OrderID,
		InvoiceID:      o.InvoiceID,
		OrderDue:       o.Offer.NewDeliveryDate,
		Amount:         formatAmount(o.Price),
		ReceiverEmail:  receiver,
		BuyerUsername:  strings.ToLower(o.BuyerUsername),
		SellerUsername: strings.ToLower(o.SellerUsername),
		Title:          o.Offer.GigTitle,
		Description:    o.Offer.Description,
		Requirements:   o.Requirements,
		ServiceFee:     formatAmount(o.ServiceFee),
		Total:          formatAmount(o.Price + o.ServiceFee),
		OrderURL:       s.orderURL(o.OrderID),
		Template:       template,
	}
}

func (s *Service) receiptEmail(o Order, receiver string) OrderReceiptEmail {
	return OrderReceiptEmail(s.invoiceEmail(o, receiver, TemplateOrderReceipt))
}

func (s *Service) notify(ctx context.Context, order Order, userTo, message string) {
	if err := s.notifier.Notify(ctx, order, userTo, message); err != nil {
		s.log.Error().Err(err).
			Str("orderId", order.OrderID).
			Str("userTo", userTo).
			Msg("notification dispatch failed")
	}
}

func (s *Service) publishJSON(ctx context.Context, exchange, key string, v any) {
	if err := s.marshalAndPublish(ctx, exchange, key, v); err != nil {
		s.log.Error().Err(err).Str("exchange", exchange).Msg("message not published")
	}
}

func (s *Service) marshalAndPublish(ctx context.Context, exchange, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.publisher.Publish(ctx, exchange, key, body)
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
