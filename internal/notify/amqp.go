package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// publishTimeout bounds a publish together with its broker confirm.
const publishTimeout = 5 * time.Second

// ErrPublishNacked is returned when the broker refuses a message.
var ErrPublishNacked = errors.New("message was nacked by broker")

// confirmChannel is the subset of *amqp091.Channel used for confirmed
// publishing.
type confirmChannel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp091.Confirmation) chan amqp091.Confirmation
	NotifyClose(c chan *amqp091.Error) chan *amqp091.Error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPNotifier publishes notifications to a RabbitMQ direct exchange. A
// downstream consumer does the actual push delivery.
//
// The channel runs in confirm mode and a publish succeeds only once the
// broker acks it. A closed channel is reopened on the next Notify; a lost
// connection is redialed.
type AMQPNotifier struct {
	url        string
	exchange   string
	routingKey string
	open       func() (confirmChannel, error)

	mu       sync.Mutex
	conn     *amqp091.Connection
	ch       confirmChannel
	confirms chan amqp091.Confirmation
	closed   chan *amqp091.Error
}

// NewAMQPNotifier dials url and declares a durable direct exchange plus a
// queue bound to it under routingKey.
func NewAMQPNotifier(url, exchange, routingKey string) (*AMQPNotifier, error) {
	n := &AMQPNotifier{
		url:        url,
		exchange:   exchange,
		routingKey: routingKey,
	}
	n.open = n.dialChannel

	if err := n.ensureChannel(); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// dialChannel opens a channel with the topology declared, redialing the
// connection first when it is gone.
func (n *AMQPNotifier) dialChannel() (confirmChannel, error) {
	if n.conn == nil || n.conn.IsClosed() {
		conn, err := amqp091.Dial(n.url)
		if err != nil {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		n.conn = conn
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopology(ch, n.exchange, n.routingKey); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return ch, nil
}

func declareTopology(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel reuses the current channel unless the broker closed it.
// Callers hold n.mu.
func (n *AMQPNotifier) ensureChannel() error {
	if n.ch != nil {
		select {
		case amqpErr := <-n.closed:
			if amqpErr != nil {
				slog.Warn("AMQP channel closed by broker, reopening", "code", amqpErr.Code, "reason", amqpErr.Reason)
			}
			n.ch = nil
		default:
			return nil
		}
	}

	ch, err := n.open()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("enable confirm mode: %w", err)
	}

	n.confirms = ch.NotifyPublish(make(chan amqp091.Confirmation, 1))
	n.closed = ch.NotifyClose(make(chan *amqp091.Error, 1))
	n.ch = ch
	return nil
}

// invalidate drops the channel so the next Notify opens a fresh one. A late
// confirm on the old channel can then never be read as the ack of a later
// message.
func (n *AMQPNotifier) invalidate() {
	if n.ch != nil {
		n.ch.Close()
	}
	n.ch = nil
	n.confirms = nil
	n.closed = nil
}

// Notify publishes one persistent JSON message and waits for the broker to
// confirm it. Publishes are serialized.
func (n *AMQPNotifier) Notify(ctx context.Context, msg Notification) error {
	body, err := NewNotificationMessage(msg).ToJSON()
	if err != nil {
		return wrap(fmt.Errorf("marshal message: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.ensureChannel(); err != nil {
		return wrap(err)
	}

	err = n.ch.PublishWithContext(
		ctx,
		n.exchange,   // exchange
		n.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		n.invalidate()
		return wrap(fmt.Errorf("publish message: %w", err))
	}

	if err := n.waitForConfirm(ctx); err != nil {
		return wrap(err)
	}

	slog.DebugContext(ctx, "Published notification",
		"recipient", msg.Recipient,
		"exchange", n.exchange,
		"routing_key", n.routingKey)
	return nil
}

func (n *AMQPNotifier) waitForConfirm(ctx context.Context) error {
	select {
	case confirmed, ok := <-n.confirms:
		if !ok {
			n.invalidate()
			return fmt.Errorf("await confirm: %w", amqp091.ErrClosed)
		}
		if !confirmed.Ack {
			return fmt.Errorf("%w: delivery tag %d", ErrPublishNacked, confirmed.DeliveryTag)
		}
		return nil
	case amqpErr := <-n.closed:
		n.invalidate()
		if amqpErr != nil {
			return fmt.Errorf("channel closed while awaiting confirm: %w", amqpErr)
		}
		return fmt.Errorf("await confirm: %w", amqp091.ErrClosed)
	case <-ctx.Done():
		n.invalidate()
		return fmt.Errorf("await confirm: %w", ctx.Err())
	}
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.invalidate()
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
