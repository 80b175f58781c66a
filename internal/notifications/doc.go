// Package notifications posts sync run summaries to ntfy.
//
// An empty notifications.ntfy_topic yields a no-op Service, so callers never
// need to check whether notifications are enabled.
package notifications
