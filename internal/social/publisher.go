package social

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EdgePublisher announces follow edge changes to the counter pipeline.
type EdgePublisher interface {
	Publish(ctx context.Context, subject string, event FollowEvent) error
}

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, event FollowEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal follow event: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return p.nc.PublishMsg(msg)
}
