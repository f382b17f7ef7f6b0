package events

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/schema"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

const (
	defaultBacklog        = 64
	defaultRedialInterval = 5 * time.Second
)

// errNotConnected is returned by Publish while no broker connection is
// usable and redialing failed.
var errNotConnected = errors.New("events: not connected to the message broker")

type amqpPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publishes submission outcomes. It implements submitter.Observer:
// Finished only queues the outcome, a background loop delivers it, so a slow
// or unreachable broker never holds up a submission. A lost connection is
// redialed on the next outcome and every RedialInterval.
type Publisher struct {
	MQURI  string // The AMQP message queue URL to dial.
	Logger zerolog.Logger

	Backlog        int           // outcomes queued for delivery, defaults to 64
	RedialInterval time.Duration // defaults to 5s

	open func(uri string) (*amqp.Connection, amqpPublisher, error)

	mu         sync.Mutex
	connection *amqp.Connection
	channel    amqpPublisher
	down       bool
	stop       chan struct{}

	startOnce sync.Once
	queue     chan Outcome
}

var _ submitter.Observer = (*Publisher)(nil)

// New connects the Publisher and starts its delivery loop.
func (p *Publisher) New() error {
	if err := p.dial(); err != nil {
		return err
	}
	p.start()
	return nil
}

func (p *Publisher) logger() zerolog.Logger {
	return p.Logger.With().Str("module", "publisher").Logger()
}

func (p *Publisher) dial() error {
	if p.MQURI == "" && p.open == nil {
		return errors.New("events: no broker URI configured")
	}
	open := p.open
	if open == nil {
		open = func(uri string) (*amqp.Connection, amqpPublisher, error) {
			return openExchange(uri)
		}
	}

	conn, channel, err := open(p.MQURI)
	if err != nil {
		return err
	}

	p.mu.Lock()
	previous := p.connection
	p.connection = conn
	p.channel = channel
	p.down = false
	p.mu.Unlock()

	if previous != nil && previous != conn {
		_ = previous.Close()
	}

	if conn != nil {
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		go p.watch(conn, closed)
	}
	logger := p.logger()
	logger.Info().Str("exchange", formrelay.Exchange).Msg("Publishing outcomes to the broker")
	return nil
}

// watch marks the publisher down once conn is gone.
func (p *Publisher) watch(conn *amqp.Connection, closed <-chan *amqp.Error) {
	for err := range closed {
		logger := p.logger()
		logger.Err(err).Msg("Broker connection dropped")
	}
	p.mu.Lock()
	if p.connection == conn {
		p.down = true
	}
	p.mu.Unlock()
}

func (p *Publisher) connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel != nil && !p.down
}

// Check reports whether the broker connection is usable.
func (p *Publisher) Check() error {
	if !p.connected() {
		return errNotConnected
	}
	return nil
}

// Publish sends o to the outcome exchange, redialing first when the
// connection was lost. It blocks for as long as the broker does.
func (p *Publisher) Publish(o Outcome) error {
	data, err := formrelay.Marshal(o)
	if err != nil {
		return err
	}

	if !p.connected() {
		if err := p.dial(); err != nil {
			return fmt.Errorf("%w (redial: %v)", errNotConnected, err)
		}
	}

	p.mu.Lock()
	channel := p.channel
	p.mu.Unlock()

	return channel.Publish(
		formrelay.Exchange,
		o.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    o.ID,
			Timestamp:    o.CompletedAt,
			Body:         data,
		},
	)
}

func (p *Publisher) start() {
	p.startOnce.Do(func() {
		backlog := p.Backlog
		if backlog <= 0 {
			backlog = defaultBacklog
		}
		interval := p.RedialInterval
		if interval <= 0 {
			interval = defaultRedialInterval
		}

		stop := make(chan struct{})
		p.mu.Lock()
		p.stop = stop
		p.mu.Unlock()
		p.queue = make(chan Outcome, backlog)

		go p.run(p.queue, stop, interval)
	})
}

func (p *Publisher) run(queue <-chan Outcome, stop <-chan struct{}, interval time.Duration) {
	logger := p.logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case outcome := <-queue:
			if err := p.Publish(outcome); err != nil {
				logger.Err(err).Str("submission", outcome.ID).Msg("Error publishing outcome")
				continue
			}
			logger.Debug().Str("submission", outcome.ID).Str("routing_key", outcome.RoutingKey()).Msg("Outcome published")
		case <-ticker.C:
			if p.connected() || (p.MQURI == "" && p.open == nil) {
				continue
			}
			if err := p.dial(); err != nil {
				logger.Debug().Err(err).Msg("Broker still unreachable")
			}
		}
	}
}

// Close stops the delivery loop and closes the broker connection. Outcomes
// still queued are discarded.
func (p *Publisher) Close() error {
	p.mu.Lock()
	stop, conn := p.stop, p.connection
	p.stop = nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Rejected implements submitter.Observer. Blocked submissions are not published.
func (p *Publisher) Rejected(string, *schema.ValidationError) {}

// Started implements submitter.Observer.
func (p *Publisher) Started(string) {}

// Finished implements submitter.Observer. It never blocks: when the backlog
// is full the outcome is dropped and logged.
func (p *Publisher) Finished(c submitter.Completion) {
	p.start()
	outcome := NewOutcome(c)
	select {
	case p.queue <- outcome:
	default:
		logger := p.logger()
		logger.Warn().Str("submission", outcome.ID).Int("backlog", cap(p.queue)).Msg("Outcome backlog full, dropping outcome")
	}
}
