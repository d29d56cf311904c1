package notifications

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is one user-facing alert tied to an order. The persisted
// record is the durable source of truth; realtime delivery is best effort.
type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserTo           string             `bson:"userTo" json:"userTo"`
	SenderUsername   string             `bson:"senderUsername" json:"senderUsername"`
	SenderPicture    string             `bson:"senderPicture" json:"senderPicture"`
	ReceiverUsername string             `bson:"receiverUsername" json:"receiverUsername"`
	ReceiverPicture  string             `bson:"receiverPicture" json:"receiverPicture"`
	Message          string             `bson:"message" json:"message"`
	OrderID          string             `bson:"orderId" json:"orderId"`
	IsRead           bool               `bson:"isRead" json:"isRead"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}
