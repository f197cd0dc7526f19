package pubsub_test

import (
	"testing"

	"social-publisher/infrastructure/pubsub"

	"github.com/stretchr/testify/assert"
)

func TestNewEventSink(t *testing.T) {
	sink := pubsub.NewEventSink(nil, "publisher-events")
	assert.NotNil(t, sink)
	assert.Equal(t, "pubsub:publisher-events", sink.Name())
}
