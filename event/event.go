package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/utils"
)

// EventBus carries store changes between sessions. Payloads are JSON encoded on the
// wire.
type EventBus interface {
	Publish(topic string, payload any) error
	Subscribe(ctx context.Context, topic string, handler func(payload any)) error
	Close() error
}

// Change is one store container update as it travels on the bus.
type Change struct {
	Container   string          `json:"container"`
	WorkspaceID string          `json:"workspaceId,omitempty"`
	Value       json.RawMessage `json:"value"`
}

// Topic is the bus topic that changes of container are published on.
func Topic(container string) string {
	return constants.EventTopicStorePrefix + container
}

// DecodeChange turns a payload delivered by Subscribe back into a Change.
func DecodeChange(payload any) (Change, error) {
	var raw []byte
	switch v := payload.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return Change{}, err
		}
	}
	var c Change
	if err := json.Unmarshal(raw, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if c.Container == "" {
		return Change{}, fmt.Errorf("decode change: missing container")
	}
	return c, nil
}

// Follow subscribes fn to the changes of the named containers until ctx is done.
// Payloads that are not changes are logged and skipped.
func Follow(ctx context.Context, bus EventBus, containers []string, fn func(Change)) error {
	for _, name := range containers {
		topic := Topic(name)
		err := bus.Subscribe(ctx, topic, func(payload any) {
			c, err := DecodeChange(payload)
			if err != nil {
				utils.Warn("event: dropping message on %s: %v", topic, err)
				return
			}
			fn(c)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NewInProcEventBus returns a bus that only reaches subscribers in this process.
func NewInProcEventBus() *WatermillEventBus {
	return NewWatermillInMemBus()
}

// NewEventBusFromConfig picks the bus named by cfg.Driver: memory (default) or nats.
func NewEventBusFromConfig(cfg *config.EventConfig) (EventBus, error) {
	if cfg == nil {
		return NewWatermillInMemBus(), nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "", constants.EventDriverMemory:
		return NewWatermillInMemBus(), nil
	case constants.EventDriverNATS:
		if cfg.URL == "" {
			return nil, fmt.Errorf("nats event driver requires url")
		}
		bus, err := NewWatermillNATSBus(constants.DefaultNATSClusterID, constants.DefaultNATSClientID, cfg.URL)
		if err != nil {
			return nil, err
		}
		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver: %s", cfg.Driver)
	}
}
