package redisx

const (
	// Realtime fanout: every API instance subscribes and forwards frames
	// to its locally connected websocket clients.
	ChannelOrderNotifications = "order:notifications"
)
