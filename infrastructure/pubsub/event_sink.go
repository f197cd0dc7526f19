package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// EventSink publishes events to a Google Cloud Pub/Sub topic, creating it on first use.
type EventSink struct {
	client    *pubsub.Client
	topicName string
	lookup    func(ctx context.Context) (*pubsub.Topic, error)

	mu    sync.Mutex
	topic *pubsub.Topic
}

func NewEventSink(client *pubsub.Client, topicName string) repository.IEventSink {
	s := &EventSink{client: client, topicName: topicName}
	s.lookup = s.findOrCreateTopic
	return s
}

func (s *EventSink) Name() string { return "pubsub:" + s.topicName }

func (s *EventSink) Send(ctx context.Context, evt model.Event) error {
	topic, err := s.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":    string(evt.Type),
			"user_id": evt.UserID,
		},
	}
	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("type", evt.Type).Debug("Event published")
	return nil
}

// ensureTopic caches the topic once found. Lookup errors are not cached, so the next event retries.
func (s *EventSink) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topic != nil {
		return s.topic, nil
	}
	topic, err := s.lookup(ctx)
	if err != nil {
		return nil, err
	}
	s.topic = topic
	return topic, nil
}

func (s *EventSink) findOrCreateTopic(ctx context.Context) (*pubsub.Topic, error) {
	topic := s.client.Topic(s.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return topic, nil
	}
	logger.GetLogger().WithField("topic", s.topicName).Info("Topic doesn't exist - creating it")
	return s.client.CreateTopic(ctx, s.topicName)
}

// NewClient connects to Pub/Sub using application default credentials.
func NewClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}
