// Package pubsub implements a Google Cloud Pub/Sub rating publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// Publisher wraps a Pub/Sub topic. The topic is fixed at construction; the
// topic argument to Publish is accepted for interface compatibility only.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New connects to Pub/Sub and binds the publisher to one topic.
func New(ctx context.Context, projectID, topicID string) (*Publisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project id and topic id are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	return &Publisher{client: client, topic: client.Topic(topicID)}, nil
}

// Publish marshals the payload to JSON and publishes it to the topic.
func (p *Publisher) Publish(ctx context.Context, _ string, payload any) (string, error) {
	if p.topic == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes the topic and releases the client.
func (p *Publisher) Close() error {
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}
