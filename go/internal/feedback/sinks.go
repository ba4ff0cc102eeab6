package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// LogSink writes every signal to the process log
type LogSink struct{}

func (LogSink) Send(ctx context.Context, sig Signal) error {
	log.Info().
		Str("match_code", sig.Code).
		Str("kind", string(sig.Kind)).
		Str("detail", sig.Detail).
		Int("period", sig.Period).
		Msg("feedback signal")
	return nil
}

func (LogSink) Close() error { return nil }

// NATSSink publishes signals on courtside.feedback.<code> with core NATS
type NATSSink struct {
	nc            *nats.Conn
	subjectPrefix string
}

func NewNATSSink(nc *nats.Conn, subjectPrefix string) *NATSSink {
	if subjectPrefix == "" {
		subjectPrefix = "courtside.feedback"
	}
	return &NATSSink{nc: nc, subjectPrefix: subjectPrefix}
}

// Subject returns the subject signals for code are published on
func (s *NATSSink) Subject(code string) string {
	return fmt.Sprintf("%s.%s", s.subjectPrefix, code)
}

func (s *NATSSink) Send(ctx context.Context, sig Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if err := s.nc.Publish(s.Subject(sig.Code), data); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

// Close flushes buffered publishes. The connection belongs to the caller.
func (s *NATSSink) Close() error {
	return s.nc.FlushTimeout(2 * time.Second)
}

type AMQPConfig struct {
	URL       string
	Exchange  string
	Heartbeat time.Duration
}

func DefaultAMQPConfig(url string) AMQPConfig {
	return AMQPConfig{
		URL:       url,
		Exchange:  "courtside.feedback",
		Heartbeat: 10 * time.Second,
	}
}

// AMQPSink publishes signals to a topic exchange with routing key <code>.<kind>
type AMQPSink struct {
	cfg AMQPConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPSink dials the broker and declares the exchange
func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: cfg.Heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Info().Str("exchange", cfg.Exchange).Msg("connected to AMQP feedback exchange")
	return &AMQPSink{cfg: cfg, conn: conn, channel: channel}, nil
}

// RoutingKey returns the topic routing key for a signal
func RoutingKey(sig Signal) string {
	return fmt.Sprintf("%s.%s", sig.Code, sig.Kind)
}

func (s *AMQPSink) Send(ctx context.Context, sig Signal) error {
	body, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.channel.Publish(
		s.cfg.Exchange,  // exchange
		RoutingKey(sig), // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    sig.At,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.Close(); err != nil {
		log.Warn().Err(err).Msg("close AMQP channel")
	}
	return s.conn.Close()
}
