package notify

import "time"

// WebhookTimeout bounds a single webhook delivery.
const WebhookTimeout = 10 * time.Second

// Log messages
const (
	LogMsgPublishFailed     = "Failed to publish notification"
	LogMsgNotificationSent  = "Notification published"
	LogMsgWebhookFailed     = "Failed to deliver notification webhook"
	LogMsgWebhookSubscribed = "Notification webhook subscribed"
)

// Error messages
const (
	ErrMsgWebhookStatus = "webhook returned status %d"
)
