package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// HandlerFunc processes one decoded message.
type HandlerFunc func(ctx context.Context, msg Message) error

// Dispatcher routes broker messages to handlers by message type.
// Messages without a handler are dropped.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *zerolog.Logger
}

func NewDispatcher(logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

func (d *Dispatcher) Handle(msgType string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[msgType] = h
}

// Dispatch decodes raw and calls the handler registered for its type.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	d.mu.RLock()
	h, ok := d.handlers[msg.Type]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	return h(ctx, msg)
}

// Run subscribes to channel and dispatches until ctx is cancelled.
// Handler errors are logged and do not stop consumption.
func (d *Dispatcher) Run(ctx context.Context, broker Broker, channel string) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := d.Dispatch(ctx, raw); err != nil {
				d.logger.Error().Err(err).Str("channel", channel).Msg("failed to handle message")
			}
		}
	}
}
