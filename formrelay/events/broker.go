package events

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/Pandentia/formrelay/formrelay"
)

// openExchange dials the broker, opens a channel and makes sure the topic
// exchange carrying outcomes exists. The connection is closed on failure.
func openExchange(uri string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("events: dial broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events: open channel: %w", err)
	}

	err = channel.ExchangeDeclare(formrelay.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events: declare exchange %s: %w", formrelay.Exchange, err)
	}

	return conn, channel, nil
}
