// Package notify carries result notifications across the task queue: the
// publisher side enqueues compact summaries, the consumer side persists a
// history record and acknowledges.
package notify

const (
	// TaskDeliver is scheduled once per persisted analysis result.
	TaskDeliver = "notification:deliver"
	// QueueNotifications is the named queue the messages transit. The queue
	// is at-least-once: a message stays redeliverable until the handler
	// returns nil.
	QueueNotifications = "notifications"
)
