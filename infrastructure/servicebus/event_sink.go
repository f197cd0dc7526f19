package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewClient authenticates against a Service Bus namespace with the default Azure credential chain.
func NewClient(namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return azservicebus.NewClient(fmt.Sprintf("%s.servicebus.windows.net", namespace), cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
}

// EventSink sends events to a Service Bus queue.
type EventSink struct {
	sender messageSender
	queue  string
}

func NewEventSink(client *azservicebus.Client, queue string) (repository.IEventSink, error) {
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return nil, err
	}
	return &EventSink{sender: sender, queue: queue}, nil
}

func (s *EventSink) Name() string { return "servicebus:" + s.queue }

func (s *EventSink) Send(ctx context.Context, evt model.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	contentType := "application/json"
	subject := string(evt.Type)
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]any{
			"user_id": evt.UserID,
		},
	}
	if evt.JobID != "" {
		correlationID := evt.JobID
		msg.CorrelationID = &correlationID
	}
	return s.sender.SendMessage(ctx, msg, nil)
}
