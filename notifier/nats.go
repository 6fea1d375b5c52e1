package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"evcs/internal"
	"evcs/internal/config"
)

// Nats publishes system events to a NATS subject tree, one leaf per
// message type, so downstream consumers can subscribe selectively.
type Nats struct {
	conn    *nats.Conn
	subject string
}

func NewNats(conf *config.Config) (*Nats, error) {
	if !conf.Nats.Enabled {
		return nil, nil
	}
	conn, err := nats.Connect(conf.Nats.Url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &Nats{
		conn:    conn,
		subject: conf.Nats.Subject,
	}, nil
}

func (n *Nats) Send(message internal.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", n.subject, message.MessageType())
	return n.conn.Publish(subject, data)
}

func (n *Nats) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
