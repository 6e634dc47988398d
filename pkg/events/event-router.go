package events

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

const TopicAgent = "agent"

// EventRouter is an in-process watermill bus: the dispatch loop publishes
// through a WatermillSink and handlers consume on the other side.
type EventRouter struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	logger     watermill.LoggerAdapter
}

func NewEventRouter() (*EventRouter, error) {
	logger := watermill.NopLogger{}
	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		// deliver in publishing order
		BlockPublishUntilSubscriberAck: true,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	return &EventRouter{
		Publisher:  goPubSub,
		Subscriber: goPubSub,
		router:     router,
		logger:     logger,
	}, nil
}

func (e *EventRouter) Sink(topic string) *WatermillSink {
	return NewWatermillSink(e.Publisher, topic)
}

func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, f)
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Close() error {
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close pubsub")
	}
	if err := e.router.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close router")
		return err
	}
	return nil
}

// StepPrinterFunc renders loop events as a human readable trace, the way a
// verbose agent executor prints its chain.
func StepPrinterFunc(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("events: could not parse event")
			return nil
		}
		line := FormatEvent(e)
		if line == "" {
			return nil
		}
		_, err = fmt.Fprintln(w, line)
		return err
	}
}

func FormatEvent(e Event) string {
	switch e.Type {
	case EventTypeStart:
		return fmt.Sprintf("> Entering agent turn: %s", e.Text)
	case EventTypePlan:
		return fmt.Sprintf("[step %d] plan: %s", e.Step, strings.TrimSpace(e.Text))
	case EventTypeParseError:
		return fmt.Sprintf("[step %d] could not parse engine output: %s", e.Step, e.Error)
	case EventTypeToolCall:
		return fmt.Sprintf("[step %d] tool query (%s): %s", e.Step, e.Tool, e.Input)
	case EventTypeToolResult:
		if e.Error != "" {
			return fmt.Sprintf("[step %d] %s error: %s", e.Step, e.Tool, e.Error)
		}
		return fmt.Sprintf("[step %d] observation: %s", e.Step, e.Text)
	case EventTypeFinal:
		return "> Finished turn."
	case EventTypeError:
		return fmt.Sprintf("> Turn failed: %s", e.Error)
	default:
		return ""
	}
}
