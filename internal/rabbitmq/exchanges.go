package rabbitmq

// Exchanges and routing keys shared with the downstream services.
const (
	ExchangeSellerUpdate = "jobber-seller-update"
	KeySellerUpdate      = "user-seller"

	ExchangeBuyerUpdate = "jobber-buyer-update"
	KeyBuyerUpdate      = "user-buyer"

	ExchangeOrderNotification = "jobber-order-notification"
	KeyOrderEmail             = "order-email"

	// Broadcast exchange for review events; bound with an empty routing key.
	ExchangeReview    = "jobber-review"
	QueueOrderReviews = "order-review-queue"
)
