package orders

import "time"

// Offer is the snapshot of the gig offer the order was placed against.
type Offer struct {
	GigTitle        string `bson:"gigTitle" json:"gigTitle"`
	Description     string `bson:"description" json:"description"`
	DeliveryInDays  int    `bson:"deliveryInDays" json:"deliveryInDays"`
	OldDeliveryDate string `bson:"oldDeliveryDate" json:"oldDeliveryDate"`
	NewDeliveryDate string `bson:"newDeliveryDate" json:"newDeliveryDate"`
	Reason          string `bson:"reason" json:"reason"`
}

// RequestExtension is the transient delivery-date negotiation slot.
// Its four fields are written and cleared together, never partially.
type RequestExtension struct {
	OriginalDate string `bson:"originalDate" json:"originalDate"`
	NewDate      string `bson:"newDate" json:"newDate"`
	Days         int    `bson:"days" json:"days"`
	Reason       string `bson:"reason" json:"reason"`
}

// Pending reports whether the slot currently holds an unresolved request.
func (r RequestExtension) Pending() bool {
	return r.Days > 0
}

// Events is the sparse audit trail, one timestamp per lifecycle milestone.
type Events struct {
	OrderDelivered     *time.Time `bson:"orderDelivered,omitempty" json:"orderDelivered,omitempty"`
	DeliveryDateUpdate *time.Time `bson:"deliveryDateUpdate,omitempty" json:"deliveryDateUpdate,omitempty"`
	BuyerReview        *time.Time `bson:"buyerReview,omitempty" json:"buyerReview,omitempty"`
	SellerReview       *time.Time `bson:"sellerReview,omitempty" json:"sellerReview,omitempty"`
}

// DeliveredWork is one delivered-file record. The sequence on an order is
// append-only.
type DeliveredWork struct {
	Message  string `bson:"message" json:"message"`
	File     string `bson:"file" json:"file"`
	FileType string `bson:"fileType" json:"fileType"`
	FileSize int64  `bson:"fileSize" json:"fileSize"`
	FileName string `bson:"fileName" json:"fileName"`
}

type Review struct {
	Rating  int       `bson:"rating" json:"rating"`
	Review  string    `bson:"review" json:"review"`
	Created time.Time `bson:"created" json:"created"`
}

// Order is the lifecycle aggregate. orderId is generated by the creating
// client and immutable afterwards.
type Order struct {
	OrderID          string           `bson:"orderId" json:"orderId"`
	InvoiceID        string           `bson:"invoiceId" json:"invoiceId"`
	GigID            string           `bson:"gigId" json:"gigId"`
	SellerID         string           `bson:"sellerId" json:"sellerId"`
	SellerUsername   string           `bson:"sellerUsername" json:"sellerUsername"`
	SellerEmail      string           `bson:"sellerEmail" json:"sellerEmail"`
	SellerImage      string           `bson:"sellerImage" json:"sellerImage"`
	BuyerID          string           `bson:"buyerId" json:"buyerId"`
	BuyerUsername    string           `bson:"buyerUsername" json:"buyerUsername"`
	BuyerEmail       string           `bson:"buyerEmail" json:"buyerEmail"`
	BuyerImage       string           `bson:"buyerImage" json:"buyerImage"`
	Offer            Offer            `bson:"offer" json:"offer"`
	Requirements     string           `bson:"requirements" json:"requirements"`
	Price            float64          `bson:"price" json:"price"`
	ServiceFee       float64          `bson:"serviceFee" json:"serviceFee"`
	Status           Status           `bson:"status" json:"status"`
	Approved         bool             `bson:"approved" json:"approved"`
	Cancelled        bool             `bson:"cancelled" json:"cancelled"`
	Delivered        bool             `bson:"delivered" json:"delivered"`
	RequestExtension RequestExtension `bson:"requestExtension" json:"requestExtension"`
	Events           Events           `bson:"events" json:"events"`
	DeliveredWork    []DeliveredWork  `bson:"deliveredWork" json:"deliveredWork"`
	BuyerReview      *Review          `bson:"buyerReview,omitempty" json:"buyerReview,omitempty"`
	SellerReview     *Review          `bson:"sellerReview,omitempty" json:"sellerReview,omitempty"`
	ApprovedAt       *time.Time       `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	DateOrdered      time.Time        `bson:"dateOrdered" json:"dateOrdered"`
}
