package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/chatflow-dev/chatflow/utils"
	stan "github.com/nats-io/stan.go"
)

const metadataContainer = "container"

// WatermillEventBus is the EventBus for both drivers.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	// shared is set when publisher and subscriber are one gochannel instance.
	shared bool
}

var _ EventBus = (*WatermillEventBus)(nil)

// NewWatermillInMemBus returns a bus backed by go channels.
func NewWatermillInMemBus() *WatermillEventBus {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 100}, busLogger{})
	return &WatermillEventBus{publisher: ps, subscriber: ps, shared: true}
}

// NewWatermillNATSBus returns a bus backed by NATS streaming. Every session connects
// with its own client id, derived from clientID, since the server refuses duplicates.
func NewWatermillNATSBus(clusterID, clientID, url string) (*WatermillEventBus, error) {
	logger := busLogger{fields: watermill.LogFields{"driver": "nats"}}
	clientID = clientID + "-" + watermill.NewShortUUID()
	pub, err := nats.NewStreamingPublisher(nats.StreamingPublisherConfig{
		ClusterID: clusterID,
		ClientID:  clientID,
		StanOptions: []stan.Option{
			stan.NatsURL(url),
		},
		Marshaler: nats.GobMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("nats publisher: %w", err)
	}
	sub, err := nats.NewStreamingSubscriber(nats.StreamingSubscriberConfig{
		ClusterID: clusterID,
		ClientID:  clientID + "-sub",
		StanOptions: []stan.Option{
			stan.NatsURL(url),
		},
		CloseTimeout:   30 * time.Second,
		AckWaitTimeout: 30 * time.Second,
		Unmarshaler:    nats.GobMarshaler{},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("nats subscriber: %w", err)
	}
	return &WatermillEventBus{publisher: pub, subscriber: sub}, nil
}

// Publish sends payload on topic. Byte slices and strings are sent as is; anything
// else is JSON encoded. The container named by a Change is copied into the message
// metadata.
func (b *WatermillEventBus) Publish(topic string, payload any) error {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
		}
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if name := containerOf(payload); name != "" {
		msg.Metadata.Set(metadataContainer, name)
	}
	return b.publisher.Publish(topic, msg)
}

// Subscribe delivers messages on topic to handler until ctx is done. JSON objects are
// decoded to map[string]any; anything else is passed as a string.
func (b *WatermillEventBus) Subscribe(ctx context.Context, topic string, handler func(payload any)) error {
	ch, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	go func() {
		for msg := range ch {
			handler(decodePayload(msg.Payload))
			msg.Ack()
		}
		utils.Debug("event: subscription to %s closed", topic)
	}()
	return nil
}

func decodePayload(data []byte) any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil && m != nil {
		return m
	}
	return string(data)
}

// containerOf returns the store container a payload reports on, if any. Both Change
// values and the maps store.PublishChanges sends carry one.
func containerOf(payload any) string {
	switch v := payload.(type) {
	case Change:
		return v.Container
	case map[string]any:
		name, _ := v["container"].(string)
		return name
	}
	return ""
}

// Close closes the publisher and, when it is a separate connection, the subscriber.
func (b *WatermillEventBus) Close() error {
	err := b.publisher.Close()
	if !b.shared {
		err = errors.Join(err, b.subscriber.Close())
	}
	return err
}
