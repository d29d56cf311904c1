package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobberhq/order-service/internal/rabbitmq"
)

type memStore struct {
	orders map[string]*Order
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]*Order)}
}

func (m *memStore) Create(_ context.Context, order Order) (Order, error) {
	o := order
	m.orders[o.OrderID] = &o
	return o, nil
}

func (m *memStore) ByID(_ context.Context, orderID string) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (m *memStore) BySeller(_ context.Context, sellerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.SellerID == sellerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) ByBuyer(_ context.Context, buyerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) Cancel(_ context.Context, orderID string, at time.Time) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok || !CanTransition(o.Status, StatusCancelled) {
		return Order{}, ErrNotFound
	}
	o.Cancelled = true
	o.Status = StatusCancelled
	o.ApprovedAt = &at
	return *o, nil
}

func (m *memStore) Approve(_ context.Context, orderID string, at time.Time) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok || !CanTransition(o.Status, StatusCompleted) {
		return Order{}, ErrNotFound
	}
	o.Approved = true
	o.Status = StatusCompleted
	o.ApprovedAt = &at
	return *o, nil
}

func (m *memStore) Deliver(_ context.Context, orderID string, work DeliveredWork, at time.Time) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok || !CanTransition(o.Status, StatusDelivered) {
		return Order{}, ErrNotFound
	}
	o.Delivered = true
	o.Status = StatusDelivered
	o.Events.OrderDelivered = &at
	o.DeliveredWork = append(o.DeliveredWork, work)
	return *o, nil
}

func (m *memStore) SetExtensionRequest(_ context.Context, orderID string, ext RequestExtension) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.RequestExtension = ext
	return *o, nil
}

func (m *memStore) ApproveExtension(_ context.Context, orderID string, ext RequestExtension, at time.Time) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok || !o.RequestExtension.Pending() {
		return Order{}, ErrNotFound
	}
	o.Offer.DeliveryInDays += ext.Days
	o.Offer.OldDeliveryDate = ext.OriginalDate
	o.Offer.NewDeliveryDate = ext.NewDate
	o.Offer.Reason = ext.Reason
	o.Events.DeliveryDateUpdate = &at
	o.RequestExtension = RequestExtension{}
	return *o, nil
}

func (m *memStore) RejectExtension(_ context.Context, orderID string) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok || !o.RequestExtension.Pending() {
		return Order{}, ErrNotFound
	}
	o.RequestExtension = RequestExtension{}
	return *o, nil
}

func (m *memStore) SetReview(_ context.Context, orderID, reviewType string, review Review) (Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	created := review.Created
	if reviewType == ReviewTypeBuyer {
		o.BuyerReview = &review
		o.Events.BuyerReview = &created
	} else {
		o.SellerReview = &review
		o.Events.SellerReview = &created
	}
	return *o, nil
}

type published struct {
	exchange string
	key      string
	body     []byte
}

type fakePublisher struct {
	messages []published
}

func (p *fakePublisher) Publish(_ context.Context, exchange, routingKey string, body []byte) {
	p.messages = append(p.messages, published{exchange: exchange, key: routingKey, body: body})
}

func (p *fakePublisher) byExchange(exchange string) []published {
	var out []published
	for _, m := range p.messages {
		if m.exchange == exchange {
			out = append(out, m)
		}
	}
	return out
}

type notified struct {
	userTo  string
	message string
}

type fakeNotifier struct {
	sent []notified
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, _ Order, userTo, message string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notified{userTo: userTo, message: message})
	return nil
}

type fakeGateway struct {
	customers    map[string]string
	created      []string
	metadata     map[string]string
	intentAmount int64
	intentCur    string
	refunded     []string
	refundErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{customers: make(map[string]string)}
}

func (g *fakeGateway) FindOrCreateCustomer(_ context.Context, email string, metadata map[string]string) (string, error) {
	if id, ok := g.customers[email]; ok {
		return id, nil
	}
	id := "cus_" + email
	g.customers[email] = id
	g.created = append(g.created, email)
	g.metadata = metadata
	return id, nil
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, amountMinor int64, currency, customerID string) (string, string, error) {
	g.intentAmount = amountMinor
	g.intentCur = currency
	return "secret_" + customerID, "pi_" + customerID, nil
}

func (g *fakeGateway) Refund(_ context.Context, intentID string) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunded = append(g.refunded, intentID)
	return nil
}

type fakeUploader struct {
	names      []string
	publicID   string
	secureURL  string
	err        error
	noPublicID bool
}

func (u *fakeUploader) Upload(_ context.Context, _ string, name string) (string, string, error) {
	if u.err != nil {
		return "", "", u.err
	}
	u.names = append(u.names, name)
	if u.noPublicID {
		return "", "", nil
	}
	return u.publicID, u.secureURL, nil
}

type serviceFixture struct {
	svc       *Service
	store     *memStore
	publisher *fakePublisher
	notifier  *fakeNotifier
	gateway   *fakeGateway
	uploader  *fakeUploader
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:     newMemStore(),
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		gateway:   newFakeGateway(),
		uploader:  &fakeUploader{publicID: "pub-1", secureURL: "https://cdn.example.com/pub-1"},
		now:       time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(ServiceConfig{
		Store:     f.store,
		Publisher: f.publisher,
		Notifier:  f.notifier,
		Gateway:   f.gateway,
		Uploader:  f.uploader,
		ClientURL: "https://jobber.example.com",
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return f.now },
	})
	return f
}

func testOrder(id string) Order {
	return Order{
		OrderID:        id,
		InvoiceID:      "inv-" + id,
		GigID:          "gig-1",
		SellerID:       "seller-1",
		SellerUsername: "Danny",
		SellerEmail:    "Danny@Example.com",
		BuyerID:        "buyer-1",
		BuyerUsername:  "Maria",
		BuyerEmail:     "Maria@Example.com",
		Offer: Offer{
			GigTitle:        "I will design a logo",
			Description:     "Vector logo design",
			DeliveryInDays:  3,
			NewDeliveryDate: "2024-05-13T00:00:00Z",
		},
		Requirements: "Brand colors attached",
		Price:        45,
	}
}

func (f *serviceFixture) place(t *testing.T, id string) Order {
	t.Helper()
	created, err := f.svc.Create(context.Background(), testOrder(id))
	require.NoError(t, err)
	f.publisher.messages = nil
	f.notifier.sent = nil
	return created
}

func TestCreateSetsFeeAndStatus(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.svc.Create(context.Background(), testOrder("o-1"))
	require.NoError(t, err)

	assert.Equal(t, StatusPlaced, created.Status)
	assert.Equal(t, 4.475, created.ServiceFee)
	assert.False(t, created.Approved)
	assert.False(t, created.Cancelled)
	assert.False(t, created.Delivered)
	assert.Equal(t, f.now, created.DateOrdered)

	stored, err := f.store.ByID(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestCreatePublishesSellerUpdateAndInvoices(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.svc.Create(context.Background(), testOrder("o-1"))
	require.NoError(t, err)

	sellerMsgs := f.publisher.byExchange(rabbitmq.ExchangeSellerUpdate)
	require.Len(t, sellerMsgs, 1)
	assert.Equal(t, rabbitmq.KeySellerUpdate, sellerMsgs[0].key)
	var su SellerUpdate
	require.NoError(t, json.Unmarshal(sellerMsgs[0].body, &su))
	assert.Equal(t, SellerUpdate{SellerID: "seller-1", OngoingJobs: 1, Type: TypeCreateOrder}, su)

	emails := f.publisher.byExchange(rabbitmq.ExchangeOrderNotification)
	require.Len(t, emails, 2)
	templates := make(map[string]OrderPlacedEmail)
	for _, msg := range emails {
		var e OrderPlacedEmail
		require.NoError(t, json.Unmarshal(msg.body, &e))
		templates[e.Template] = e
	}

	invoice, ok := templates[TemplateOrderPlaced]
	require.True(t, ok, "seller invoice missing")
	assert.Equal(t, "danny@example.com", invoice.ReceiverEmail)
	assert.Equal(t, "maria", invoice.BuyerUsername)
	assert.Equal(t, "danny", invoice.SellerUsername)
	assert.Equal(t, "45", invoice.Amount)
	assert.Equal(t, "4.475", invoice.ServiceFee)
	assert.Equal(t, "49.475", invoice.Total)
	assert.Equal(t, "https://jobber.example.com/orders/o-1/activities", invoice.OrderURL)

	receipt, ok := templates[TemplateOrderReceipt]
	require.True(t, ok, "buyer receipt missing")
	assert.Equal(t, "maria@example.com", receipt.ReceiverEmail)
	assert.Equal(t, created.InvoiceID, receipt.InvoiceID)
}

func TestCancelRefundsAndReleasesLinkage(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	cancelled, err := f.svc.Cancel(context.Background(), "o-1", CancelOrder{
		PaymentIntentID: "pi_1",
		SellerID:        "seller-1",
		BuyerID:         "buyer-1",
		PurchasedGigID:  "gig-1",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, []string{"pi_1"}, f.gateway.refunded)

	require.Len(t, f.publisher.messages, 2)
	var su SellerUpdate
	require.NoError(t, json.Unmarshal(f.publisher.messages[0].body, &su))
	assert.Equal(t, TypeCancelOrder, su.Type)
	assert.Zero(t, su.OngoingJobs)
	var bu BuyerUpdate
	require.NoError(t, json.Unmarshal(f.publisher.messages[1].body, &bu))
	assert.Equal(t, BuyerUpdate{BuyerID: "buyer-1", PurchasedGigID: "gig-1", Type: TypeCancelOrder}, bu)

	assert.Empty(t, f.notifier.sent)
}

func TestCancelTwiceIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	data := CancelOrder{PaymentIntentID: "pi_1", SellerID: "seller-1", BuyerID: "buyer-1"}
	_, err := f.svc.Cancel(context.Background(), "o-1", data)
	require.NoError(t, err)

	again, err := f.svc.Cancel(context.Background(), "o-1", data)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
}

func TestCancelCompletedOrderLeavesItUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	_, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{Message: "done"})
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), "o-1", ApproveOrder{SellerID: "seller-1"})
	require.NoError(t, err)
	f.publisher.messages = nil

	order, err := f.svc.Cancel(context.Background(), "o-1", CancelOrder{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, order.Status)
	assert.False(t, order.Cancelled)
	assert.Empty(t, f.publisher.messages)
}

func TestCancelMissingOrder(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Cancel(context.Background(), "nope", CancelOrder{PaymentIntentID: "pi_1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRefundFailureAborts(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	f.gateway.refundErr = errors.New("stripe is down")

	_, err := f.svc.Cancel(context.Background(), "o-1", CancelOrder{PaymentIntentID: "pi_1"})
	require.Error(t, err)

	order, err := f.store.ByID(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Empty(t, f.publisher.messages)
}

func TestApproveCompletesAndCreditsSeller(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	_, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{Message: "done"})
	require.NoError(t, err)
	f.publisher.messages = nil
	f.notifier.sent = nil

	approved, err := f.svc.Approve(context.Background(), "o-1", ApproveOrder{
		SellerID:       "seller-1",
		BuyerID:        "buyer-1",
		PurchasedGigID: "gig-1",
		TotalEarnings:  45,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, approved.Status)
	assert.True(t, approved.Approved)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, f.now, *approved.ApprovedAt)

	require.Len(t, f.publisher.messages, 2)
	var su SellerUpdate
	require.NoError(t, json.Unmarshal(f.publisher.messages[0].body, &su))
	assert.Equal(t, -1, su.OngoingJobs)
	assert.Equal(t, 1, su.CompletedJobs)
	assert.Equal(t, 45.0, su.TotalEarnings)
	assert.Equal(t, f.now.Format(time.RFC3339), su.RecentDelivery)
	assert.Equal(t, TypeApproveOrder, su.Type)
	var bu BuyerUpdate
	require.NoError(t, json.Unmarshal(f.publisher.messages[1].body, &bu))
	assert.Equal(t, TypePurchasedGigs, bu.Type)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notified{userTo: "Danny", message: "Approved your order delivery"}, f.notifier.sent[0])
}

func TestApproveUndeliveredOrderLeavesItUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	order, err := f.svc.Approve(context.Background(), "o-1", ApproveOrder{SellerID: "seller-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.False(t, order.Approved)
	assert.Empty(t, f.publisher.messages)
}

func TestDeliverAppendsWork(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	first, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{Message: "first draft"})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, first.Status)
	assert.True(t, first.Delivered)
	require.NotNil(t, first.Events.OrderDelivered)
	require.Len(t, first.DeliveredWork, 1)

	second, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{Message: "final"})
	require.NoError(t, err)
	require.Len(t, second.DeliveredWork, 2)
	assert.Equal(t, "first draft", second.DeliveredWork[0].Message)
	assert.Equal(t, "final", second.DeliveredWork[1].Message)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, notified{userTo: "Maria", message: "Delivered your order"}, f.notifier.sent[0])
}

func TestDeliverUploadsFileAndSubstitutesURL(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	order, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{
		Message:  "done",
		File:     "base64payload",
		FileType: "pdf",
		FileName: "logo.pdf",
	})
	require.NoError(t, err)

	require.Len(t, order.DeliveredWork, 1)
	assert.Equal(t, "https://cdn.example.com/pub-1", order.DeliveredWork[0].File)
	require.Len(t, f.uploader.names, 1)
	assert.Empty(t, f.uploader.names[0])

	emails := f.publisher.byExchange(rabbitmq.ExchangeOrderNotification)
	require.Len(t, emails, 1)
	var e OrderDeliveredEmail
	require.NoError(t, json.Unmarshal(emails[0].body, &e))
	assert.Equal(t, TemplateOrderDelivered, e.Template)
	assert.Equal(t, "maria@example.com", e.ReceiverEmail)
}

func TestDeliverZipGetsGeneratedName(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	_, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{
		File:     "base64payload",
		FileType: "zip",
		FileName: "assets.zip",
	})
	require.NoError(t, err)

	require.Len(t, f.uploader.names, 1)
	assert.True(t, strings.HasSuffix(f.uploader.names[0], ".zip"))
	assert.NotEqual(t, "assets.zip", f.uploader.names[0])
}

func TestDeliverUploadFailureAborts(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	f.uploader.err = errors.New("cloudinary unreachable")

	_, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{File: "payload"})
	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)

	order, err := f.store.ByID(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Empty(t, order.DeliveredWork)
	assert.Empty(t, f.publisher.messages)
}

func TestDeliverEmptyPublicIDIsUploadFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	f.uploader.noPublicID = true

	_, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{File: "payload"})
	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
}

func TestDeliverCancelledOrderLeavesItUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	_, err := f.svc.Cancel(context.Background(), "o-1", CancelOrder{PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	f.publisher.messages = nil

	order, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{Message: "late"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, order.Status)
	assert.Empty(t, order.DeliveredWork)
	assert.Empty(t, f.publisher.messages)
}

func TestRequestExtensionWritesSlotAndNotifiesBuyer(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	ext := RequestExtension{
		OriginalDate: "2024-05-13T00:00:00Z",
		NewDate:      "2024-05-15T00:00:00Z",
		Days:         2,
		Reason:       "client added a revision round",
	}
	order, err := f.svc.RequestExtension(context.Background(), "o-1", ext)
	require.NoError(t, err)

	assert.Equal(t, ext, order.RequestExtension)
	assert.True(t, order.RequestExtension.Pending())
	assert.Equal(t, StatusPlaced, order.Status)

	emails := f.publisher.byExchange(rabbitmq.ExchangeOrderNotification)
	require.Len(t, emails, 1)
	var e OrderExtensionEmail
	require.NoError(t, json.Unmarshal(emails[0].body, &e))
	assert.Equal(t, TemplateOrderExtension, e.Template)
	assert.Equal(t, "maria@example.com", e.ReceiverEmail)
	assert.Equal(t, ext.Reason, e.Reason)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notified{userTo: "Maria", message: "Requested for an order delivery date extension"}, f.notifier.sent[0])
}

func TestResolveExtensionApprove(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	ext := RequestExtension{
		OriginalDate: "2024-05-13T00:00:00Z",
		NewDate:      "2024-05-15T00:00:00Z",
		Days:         2,
		Reason:       "revision round",
	}
	_, err := f.svc.RequestExtension(context.Background(), "o-1", ext)
	require.NoError(t, err)
	f.publisher.messages = nil
	f.notifier.sent = nil

	order, err := f.svc.ResolveExtension(context.Background(), "o-1", "approve", ext)
	require.NoError(t, err)

	assert.Equal(t, 5, order.Offer.DeliveryInDays)
	assert.Equal(t, ext.NewDate, order.Offer.NewDeliveryDate)
	assert.Equal(t, ext.OriginalDate, order.Offer.OldDeliveryDate)
	assert.False(t, order.RequestExtension.Pending())
	require.NotNil(t, order.Events.DeliveryDateUpdate)

	emails := f.publisher.byExchange(rabbitmq.ExchangeOrderNotification)
	require.Len(t, emails, 1)
	var e OrderExtensionApprovalEmail
	require.NoError(t, json.Unmarshal(emails[0].body, &e))
	assert.Equal(t, "accepted", e.Type)
	assert.Equal(t, "Request Accepted", e.Header)
	assert.Equal(t, "danny@example.com", e.ReceiverEmail)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notified{userTo: "Danny", message: "Approved your order delivery date extension request"}, f.notifier.sent[0])
}

func TestResolveExtensionReject(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	ext := RequestExtension{
		OriginalDate: "2024-05-13T00:00:00Z",
		NewDate:      "2024-05-15T00:00:00Z",
		Days:         2,
		Reason:       "revision round",
	}
	_, err := f.svc.RequestExtension(context.Background(), "o-1", ext)
	require.NoError(t, err)
	f.publisher.messages = nil
	f.notifier.sent = nil

	order, err := f.svc.ResolveExtension(context.Background(), "o-1", "reject", ext)
	require.NoError(t, err)

	assert.Equal(t, 3, order.Offer.DeliveryInDays)
	assert.False(t, order.RequestExtension.Pending())

	emails := f.publisher.byExchange(rabbitmq.ExchangeOrderNotification)
	require.Len(t, emails, 1)
	var e OrderExtensionApprovalEmail
	require.NoError(t, json.Unmarshal(emails[0].body, &e))
	assert.Equal(t, "rejected", e.Type)
	assert.Equal(t, "Request Rejected", e.Header)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notified{userTo: "Danny", message: "Rejected your order delivery date extension request"}, f.notifier.sent[0])
}

func TestResolveExtensionWithoutPendingRequestIsNoOp(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	order, err := f.svc.ResolveExtension(context.Background(), "o-1", "approve", RequestExtension{Days: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, order.Offer.DeliveryInDays)
	assert.Empty(t, f.publisher.messages)
	assert.Empty(t, f.notifier.sent)
}

func TestResolveExtensionMissingOrder(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ResolveExtension(context.Background(), "nope", "approve", RequestExtension{Days: 2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyReviewNotifiesOtherParty(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")

	order, err := f.svc.ApplyReview(context.Background(), ReviewMessage{
		OrderID: "o-1",
		Type:    ReviewTypeBuyer,
		Rating:  5,
		Review:  "Great work",
	})
	require.NoError(t, err)

	require.NotNil(t, order.BuyerReview)
	assert.Equal(t, 5, order.BuyerReview.Rating)
	assert.Equal(t, f.now, order.BuyerReview.Created)
	require.NotNil(t, order.Events.BuyerReview)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notified{userTo: "Danny", message: "Left you a 5 star review"}, f.notifier.sent[0])

	order, err = f.svc.ApplyReview(context.Background(), ReviewMessage{
		OrderID: "o-1",
		Type:    ReviewTypeSeller,
		Rating:  4,
		Review:  "Good client",
	})
	require.NoError(t, err)
	require.NotNil(t, order.SellerReview)
	assert.Equal(t, notified{userTo: "Maria", message: "Left you a 4 star review"}, f.notifier.sent[1])
}

func TestApplyReviewUnknownType(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ApplyReview(context.Background(), ReviewMessage{OrderID: "o-1", Type: "gig-review"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newServiceFixture(t)

	secret, intentID, err := f.svc.CreatePaymentIntent(context.Background(), "Maria@Example.com", "buyer-1", 45)
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.NotEmpty(t, intentID)

	assert.Equal(t, []string{"maria@example.com"}, f.gateway.created)
	assert.Equal(t, map[string]string{"buyerId": "buyer-1"}, f.gateway.metadata)
	assert.Equal(t, int64(4947), f.gateway.intentAmount)
	assert.Equal(t, "usd", f.gateway.intentCur)

	_, _, err = f.svc.CreatePaymentIntent(context.Background(), "maria@example.com", "buyer-1", 45)
	require.NoError(t, err)
	assert.Len(t, f.gateway.created, 1, "customer should be reused on the second intent")
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newServiceFixture(t)
	f.place(t, "o-1")
	f.notifier.err = errors.New("redis gone")

	order, err := f.svc.Deliver(context.Background(), "o-1", DeliveredWork{Message: "done"})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, order.Status)
}

func TestLifecycleEndToEnd(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.svc.Create(context.Background(), testOrder("o-9"))
	require.NoError(t, err)
	assert.Equal(t, 4.475, created.ServiceFee)

	delivered, err := f.svc.Deliver(context.Background(), "o-9", DeliveredWork{Message: "final files"})
	require.NoError(t, err)
	require.Len(t, delivered.DeliveredWork, 1)

	completed, err := f.svc.Approve(context.Background(), "o-9", ApproveOrder{
		SellerID: "seller-1", BuyerID: "buyer-1", TotalEarnings: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	sellers, err := f.svc.OrdersBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	buyers, err := f.svc.OrdersByBuyer(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, buyers, 1)
}

func TestOrderByIDMissing(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.OrderByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
