package events

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/Pandentia/formrelay/formrelay"
)

// Consumer reads outcomes from the durable outcome queue.
type Consumer struct {
	MQURI  string // The AMQP message queue URL to dial.
	Logger zerolog.Logger

	// Handle is called for every decoded outcome. It defaults to logging it.
	Handle func(Outcome)

	conn    *amqp.Connection
	channel *amqp.Channel
}

// New connects the Consumer, then declares the durable outcome queue and
// binds it to every form's routing key. It should only be called once.
func (c *Consumer) New() error {
	logger := c.Logger.With().Str("module", "consumer").Logger()

	conn, channel, err := openExchange(c.MQURI)
	if err != nil {
		return err
	}
	c.conn, c.channel = conn, channel

	// one unacknowledged outcome at a time
	if err := channel.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("events: set prefetch: %w", err)
	}

	queue, err := channel.QueueDeclare(formrelay.OutcomeQueue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("events: declare queue %s: %w", formrelay.OutcomeQueue, err)
	}

	binding := formrelay.OutcomeRoutingKey + ".*"
	if err := channel.QueueBind(queue.Name, binding, formrelay.Exchange, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("events: bind %s to %s: %w", queue.Name, binding, err)
	}

	logger.Debug().
		Str("queue", queue.Name).
		Str("binding", binding).
		Int("backlog", queue.Messages).
		Msg("Outcome queue ready")
	return nil
}

// Run starts consuming. It blocks until the delivery channel closes.
func (c *Consumer) Run() error {
	logger := c.Logger.With().Str("module", "consumer").Logger()
	logger.Info().Msg("Outcome consumer started")

	deliveries, err := c.channel.Consume(formrelay.OutcomeQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for delivery := range deliveries {
		if err := c.process(logger, delivery.Body); err != nil {
			delivery.Reject(false) // do *not* requeue, it would only fail again
			continue
		}
		delivery.Ack(false)
	}

	return nil
}

func (c *Consumer) process(logger zerolog.Logger, body []byte) error {
	var outcome Outcome
	if err := formrelay.Unmarshal(body, &outcome); err != nil {
		logger.Err(err).Int("bytes", len(body)).Msg("Error deserializing outcome. Rejecting and continuing.")
		return err
	}

	if c.Handle != nil {
		c.Handle(outcome)
		return nil
	}

	event := logger.Info()
	if outcome.State != formrelay.StateSuccess {
		event = logger.Warn()
	}
	event.
		Str("submission", outcome.ID).
		Str("form", outcome.Form).
		Str("state", string(outcome.State)).
		Str("message", outcome.Message).
		Time("completed_at", outcome.CompletedAt).
		Msg("Submission outcome")
	return nil
}

// Close closes the broker connection.
func (c *Consumer) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
