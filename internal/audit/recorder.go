package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/link-registry/internal/messaging"
	"go.uber.org/zap"
)

var errMalformedEvent = errors.New("malformed lifecycle event")

// Topics lists every lifecycle topic in the order the recorder subscribes.
var Topics = []string{TopicLinkCreated, TopicLinkUpdated, TopicLinkDeleted}

type recordFunc func(ctx context.Context, sink Sink, payload []byte) error

func decodeInto[T any](write func(Sink, context.Context, *T) error) recordFunc {
	return func(ctx context.Context, sink Sink, payload []byte) error {
		var event T
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %w", errMalformedEvent, err)
		}

		return write(sink, ctx, &event)
	}
}

var recorders = map[string]recordFunc{
	TopicLinkCreated: decodeInto(Sink.LinkCreated),
	TopicLinkUpdated: decodeInto(Sink.LinkUpdated),
	TopicLinkDeleted: decodeInto(Sink.LinkDeleted),
}

// Recorder subscribes to every lifecycle topic and writes each event to a
// Sink. A malformed event or one stamped with another topic is acked and
// dropped; a sink failure is nacked so the transport redelivers it.
type Recorder struct {
	subscriber message.Subscriber
	sink       Sink
	logger     *zap.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewRecorder creates a recorder reading from subscriber.
func NewRecorder(subscriber message.Subscriber, sink Sink, logger *zap.Logger) *Recorder {
	return &Recorder{
		subscriber: subscriber,
		sink:       sink,
		logger:     logger,
	}
}

// Start subscribes to all lifecycle topics. If any subscription fails the
// ones already running are stopped.
func (r *Recorder) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	for _, topic := range Topics {
		msgs, err := r.subscriber.Subscribe(ctx, topic)
		if err != nil {
			r.cancel()
			r.wg.Wait()

			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		r.wg.Add(1)

		go r.run(ctx, topic, msgs)
	}

	r.logger.Info("audit recorder started", zap.Strings("topics", Topics))

	return nil
}

func (r *Recorder) run(ctx context.Context, topic string, msgs <-chan *message.Message) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			r.record(ctx, topic, msg)
		}
	}
}

func (r *Recorder) record(ctx context.Context, topic string, msg *message.Message) {
	logger := r.logger.With(zap.String("topic", topic), zap.String("message_id", msg.UUID))

	if stamped := msg.Metadata.Get(messaging.MetadataTopic); stamped != "" && stamped != topic {
		logger.Warn("dropping event stamped with another topic", zap.String("stamped", stamped))
		msg.Ack()

		return
	}

	err := recorders[topic](ctx, r.sink, msg.Payload)

	switch {
	case errors.Is(err, errMalformedEvent):
		logger.Error("dropping malformed event", zap.Error(err))
		msg.Ack()
	case err != nil:
		logger.Error("failed to record event", zap.Error(err))
		msg.Nack()
	default:
		msg.Ack()
	}
}

// Shutdown stops every subscription, waits for in-flight events and closes
// the subscriber.
func (r *Recorder) Shutdown() error {
	if r.cancel != nil {
		r.cancel()
	}

	r.wg.Wait()

	return r.subscriber.Close()
}
