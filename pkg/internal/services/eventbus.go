package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/athlink/feedengine/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const postEventsTopic = "feed.post_events"

// EventBus carries PostEvents between independent holders of post data. It
// is a constructed, injected instance so tests can spin up isolated buses.
// Publishing blocks until every subscriber has acked the event, so events
// for the same post reach each subscriber in publish order and an absolute
// like update can never be overtaken by an older one.
type EventBus struct {
	channel *gochannel.GoChannel

	mu   sync.Mutex
	subs map[string]*busConsumer
}

// busConsumer is one handler loop; done closes once the loop has drained,
// which is the point after which no further handler invocation can happen.
type busConsumer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		}, watermill.NopLogger{}),
		subs: make(map[string]*busConsumer),
	}
}

func (b *EventBus) Publish(event models.PostEvent) error {
	payload, err := jsoniter.Marshal(event)
	if err != nil {
		return fmt.Errorf("unable to encode post event: %v", err)
	}

	return b.channel.Publish(postEventsTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe registers a handler and returns the token to unsubscribe with.
func (b *EventBus) Subscribe(handler func(event models.PostEvent)) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.channel.Subscribe(ctx, postEventsTopic)
	if err != nil {
		cancel()
		return "", fmt.Errorf("unable to subscribe post events: %v", err)
	}

	token := watermill.NewUUID()
	consumer := &busConsumer{cancel: cancel, done: make(chan struct{})}
	b.mu.Lock()
	b.subs[token] = consumer
	b.mu.Unlock()

	go func() {
		defer close(consumer.done)
		for msg := range messages {
			var event models.PostEvent
			if err := jsoniter.Unmarshal(msg.Payload, &event); err != nil {
				log.Warn().Err(err).Msg("Dropping malformed post event...")
				msg.Ack()
				continue
			}
			handler(event)
			msg.Ack()
		}
	}()

	return token, nil
}

// Unsubscribe cancels the consumer and waits until its loop has drained, so
// an event published after Unsubscribe returns can no longer reach the
// handler.
func (b *EventBus) Unsubscribe(token string) {
	b.mu.Lock()
	consumer, ok := b.subs[token]
	delete(b.subs, token)
	b.mu.Unlock()

	if !ok {
		return
	}
	consumer.cancel()
	<-consumer.done
}

func (b *EventBus) Close() error {
	b.mu.Lock()
	consumers := make([]*busConsumer, 0, len(b.subs))
	for token, consumer := range b.subs {
		consumers = append(consumers, consumer)
		delete(b.subs, token)
	}
	b.mu.Unlock()

	for _, consumer := range consumers {
		consumer.cancel()
		<-consumer.done
	}

	return b.channel.Close()
}
