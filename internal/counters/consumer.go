package counters

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"backend-urbexqueens/internal/social"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const queueGroup = "follow-counters"

// Consumer applies follow events from NATS. Delivery is at most once; failed
// updates are logged and not retried.
type Consumer struct {
	sync *Sync
	subs []*nats.Subscription
}

func NewConsumer(sync *Sync) *Consumer {
	return &Consumer{sync: sync}
}

func (c *Consumer) Start(nc *nats.Conn) error {
	for subject, apply := range map[string]func(context.Context, social.FollowEvent) error{
		social.SubjectFollowCreated: c.sync.FollowCreated,
		social.SubjectFollowDeleted: c.sync.FollowDeleted,
	} {
		sub, err := nc.QueueSubscribe(subject, queueGroup, c.handler(subject, apply))
		if err != nil {
			c.Stop()
			return err
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
}

func (c *Consumer) handler(subject string, apply func(context.Context, social.FollowEvent) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
		ctx, span := otel.Tracer("counters").Start(ctx, "process_"+subject, trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		var ev social.FollowEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			span.RecordError(err)
			slog.Error("invalid follow event", "subject", subject, "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := apply(ctx, ev); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("follow counter update failed", "subject", subject, "from_uid", ev.FromUID, "to_uid", ev.ToUID, "error", err)
		}
	}
}
