package queue

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubPublisher implements Publisher using Google Cloud Pub/Sub.
type PubSubPublisher struct {
	Client *pubsub.Client
	Topic  *pubsub.Topic
}

// NewPubSubPublisher creates a Pub/Sub client and verifies the topic exists.
// Authentication uses Application Default Credentials.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("check topic %q: %w (close client: %v)", topicID, err, closeErr)
		}
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("topic %q does not exist in project %q (close client: %v)", topicID, projectID, closeErr)
		}
		return nil, fmt.Errorf("topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSubPublisher{Client: client, Topic: topic}, nil
}

// Publish sends the object key to the topic and waits for the server ack.
// The key is the whole payload; subscribers gate on its path shape.
func (p *PubSubPublisher) Publish(ctx context.Context, objectKey string) error {
	result := p.Topic.Publish(ctx, &pubsub.Message{Data: []byte(objectKey)})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish object key %s: %w", objectKey, err)
	}
	return nil
}

// Close stops the topic's publisher and closes the client connection.
func (p *PubSubPublisher) Close() error {
	p.Topic.Stop()
	if err := p.Client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// NewClient creates a Pub/Sub client for subscribing. Authentication uses
// Application Default Credentials.
func NewClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return client, nil
}

// Receive pulls messages from the subscription and invokes handle with each
// message's object key, acking on success and nacking on error. It blocks
// until ctx is canceled.
func Receive(ctx context.Context, client *pubsub.Client, subscription string, handle func(ctx context.Context, objectKey string) error) error {
	sub := client.Subscription(subscription)
	err := sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handle(ctx, string(msg.Data)); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("receive from subscription %s: %w", subscription, err)
	}
	return nil
}
