package db

import (
	"time"

	"backend-urbexqueens/internal/config"

	"github.com/nats-io/nats.go"
)

// ConnectNats returns nil when no bus is configured; follow events are then
// applied in-process.
func ConnectNats(cfg config.Config) (*nats.Conn, error) {
	if cfg.NatsURL == "" {
		return nil, nil
	}
	return nats.Connect(cfg.NatsURL,
		nats.Name("urbexqueens-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
}
