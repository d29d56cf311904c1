package orders

import "time"

// Integration message types published to the users service.
const (
	TypeCreateOrder   = "create-order"
	TypeCancelOrder   = "cancel-order"
	TypeApproveOrder  = "approve-order"
	TypePurchasedGigs = "purchased-gigs"
)

// Email template names consumed by the notification service.
const (
	TemplateOrderPlaced            = "orderPlaced"
	TemplateOrderReceipt           = "orderReceipt"
	TemplateOrderDelivered         = "orderDelivered"
	TemplateOrderExtension         = "orderExtension"
	TemplateOrderExtensionApproval = "orderExtensionApproval"
)

// SellerUpdate adjusts the seller profile counters.
type SellerUpdate struct {
	SellerID       string  `json:"sellerId"`
	OngoingJobs    int     `json:"ongoingJobs,omitempty"`
	CompletedJobs  int     `json:"completedJobs,omitempty"`
	TotalEarnings  float64 `json:"totalEarnings,omitempty"`
	RecentDelivery string  `json:"recentDelivery,omitempty"`
	Type           string  `json:"type"`
}

// BuyerUpdate records or releases the purchased-gig linkage on the buyer
// profile.
type BuyerUpdate struct {
	BuyerID        string `json:"buyerId"`
	PurchasedGigID string `json:"purchasedGigId"`
	Type           string `json:"type"`
}

// OrderPlacedEmail is the seller-facing invoice sent when an order is placed.
type OrderPlacedEmail struct {
	OrderID        string `json:"orderId"`
	InvoiceID      string `json:"invoiceId"`
	OrderDue       string `json:"orderDue"`
	Amount         string `json:"amount"`
	ReceiverEmail  string `json:"receiverEmail"`
	BuyerUsername  string `json:"buyerUsername"`
	SellerUsername string `json:"sellerUsername"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Requirements   string `json:"requirements"`
	ServiceFee     string `json:"serviceFee"`
	Total          string `json:"total"`
	OrderURL       string `json:"orderUrl"`
	Template       string `json:"template"`
}

// OrderReceiptEmail is the buyer-facing receipt, same invoice fields under
// its own template.
type OrderReceiptEmail struct {
	OrderID        string `json:"orderId"`
	InvoiceID      string `json:"invoiceId"`
	OrderDue       string `json:"orderDue"`
	Amount         string `json:"amount"`
	ReceiverEmail  string `json:"receiverEmail"`
	BuyerUsername  string `json:"buyerUsername"`
	SellerUsername string `json:"sellerUsername"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Requirements   string `json:"requirements"`
	ServiceFee     string `json:"serviceFee"`
	Total          string `json:"total"`
	OrderURL       string `json:"orderUrl"`
	Template       string `json:"template"`
}

type OrderDeliveredEmail struct {
	OrderID        string `json:"orderId"`
	ReceiverEmail  string `json:"receiverEmail"`
	BuyerUsername  string `json:"buyerUsername"`
	SellerUsername string `json:"sellerUsername"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	OrderURL       string `json:"orderUrl"`
	Template       string `json:"template"`
}

type OrderExtensionEmail struct {
	ReceiverEmail  string `json:"receiverEmail"`
	BuyerUsername  string `json:"buyerUsername"`
	SellerUsername string `json:"sellerUsername"`
	OriginalDate   string `json:"originalDate"`
	NewDate        string `json:"newDate"`
	Reason         string `json:"reason"`
	OrderURL       string `json:"orderUrl"`
	Template       string `json:"template"`
}

// OrderExtensionApprovalEmail carries the accepted or rejected resolution of
// an extension request to the seller.
type OrderExtensionApprovalEmail struct {
	Subject        string `json:"subject"`
	ReceiverEmail  string `json:"receiverEmail"`
	BuyerUsername  string `json:"buyerUsername"`
	SellerUsername string `json:"sellerUsername"`
	Header         string `json:"header"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	OrderURL       string `json:"orderUrl"`
	Template       string `json:"template"`
}

// Review message kinds consumed from the jobber-review fanout exchange.
const (
	ReviewTypeBuyer  = "buyer-review"
	ReviewTypeSeller = "seller-review"
)

// ReviewMessage is the inbound review event.
type ReviewMessage struct {
	OrderID   string    `json:"orderId"`
	Type      string    `json:"type"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"createdAt"`
}
