package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher emits JSON events onto subjects under a shared prefix.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// Connect dials NATS and returns a publisher scoped to the subject prefix.
func Connect(url, name, prefix string, logger zerolog.Logger) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url must be provided")
	}

	log := logger.With().Str("component", "nats_broker").Logger()
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return NewPublisher(conn, prefix, logger), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		prefix: strings.Trim(strings.ReplaceAll(prefix, ":", "."), "."),
		logger: logger.With().Str("component", "nats_broker").Logger(),
	}
}

// Subject qualifies a subject with the configured prefix.
func (p *Publisher) Subject(name string) string {
	name = strings.Trim(name, ".")
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

// PublishJSON marshals the payload and publishes it on the prefixed subject.
func (p *Publisher) PublishJSON(name string, payload interface{}) error {
	if p == nil || p.conn == nil {
		return errors.New("nats publisher is not connected")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	subject := p.Subject(name)
	if err := p.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug().Str("subject", subject).Int("bytes", len(body)).Msg("event published")
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("nats drain failed")
		p.conn.Close()
	}
}
