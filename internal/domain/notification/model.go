package notification

import "context"

// Message is a notification to publish on a topic
type Message struct {
	Topic   string
	Subject string
	Body    string
	// GroupID and DeduplicationID are only sent to FIFO topics.
	GroupID         string
	DeduplicationID string
}

// Publisher defines the pub/sub operation the handlers need
type Publisher interface {
	// Publish sends msg and returns the provider's message id
	Publish(ctx context.Context, msg Message) (string, error)
}
