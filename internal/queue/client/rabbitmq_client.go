package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/stakevault/nft-staking-service/internal/utils"
)

// RabbitMqClient publishes messages to a single durable queue with publisher
// confirms. A lost connection is redialed in the background until Stop is
// called; publishes attempted while disconnected fail fast and the caller
// decides whether to retry.
type RabbitMqClient struct {
	amqpURI           string
	queueName         string
	reconnectInterval time.Duration

	mu         sync.RWMutex
	connection *amqp091.Connection
	channel    *amqp091.Channel

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRabbitMqClient(queueURL, user, pass, queueName string, reconnectInterval time.Duration) (*RabbitMqClient, error) {
	amqpURI := fmt.Sprintf("amqp://%s:%s@%s", user, pass, queueURL)
	conn, ch, err := dial(amqpURI, queueName)
	if err != nil {
		return nil, err
	}
	c := &RabbitMqClient{
		amqpURI:           amqpURI,
		queueName:         queueName,
		reconnectInterval: reconnectInterval,
		connection:        conn,
		channel:           ch,
		stopCh:            make(chan struct{}),
	}
	go c.monitorConnection()
	return c, nil
}

// dial opens a connection and a confirm-mode channel with the queue declared
// durable.
func dial(amqpURI, queueName string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(amqpURI)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, errors.Wrap(err, "open channel")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, errors.Wrapf(err, "declare queue %s", queueName)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, nil, errors.Wrap(err, "enable publisher confirms")
	}
	return conn, ch, nil
}

func (c *RabbitMqClient) GetQueueName() string {
	return c.queueName
}

// SendMessage publishes messageBody and waits for the broker's confirm. An
// unconfirmed publish is an error: the caller cannot assume delivery happened.
func (c *RabbitMqClient) SendMessage(ctx context.Context, messageBody string) error {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", c.queueName, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         []byte(messageBody),
		})
	if err != nil {
		return errors.Wrapf(err, "publish to queue %s", c.queueName)
	}
	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return errors.Wrapf(err, "await confirm from queue %s", c.queueName)
	}
	if !acked {
		return errors.Errorf("message to queue %s was nacked by the broker", c.queueName)
	}
	return nil
}

// Ping verifies the connection by passively inspecting the queue on a fresh
// channel, so a broken publishing channel cannot hide behind a healthy
// connection object.
func (c *RabbitMqClient) Ping() error {
	c.mu.RLock()
	conn := c.connection
	c.mu.RUnlock()
	if conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open health check channel")
	}
	defer ch.Close()
	if _, err := ch.QueueInspect(c.queueName); err != nil {
		return errors.Wrapf(err, "inspect queue %s", c.queueName)
	}
	return nil
}

func (c *RabbitMqClient) Stop() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.mu.RLock()
	conn := c.connection
	c.mu.RUnlock()
	if conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// monitorConnection redials dropped connections until Stop is called.
func (c *RabbitMqClient) monitorConnection() {
	for {
		c.mu.RLock()
		closeCh := c.connection.NotifyClose(make(chan *amqp091.Error, 1))
		c.mu.RUnlock()

		select {
		case <-c.stopCh:
			return
		case amqpErr := <-closeCh:
			if amqpErr == nil {
				// Graceful close.
				return
			}
			log.Error().Err(amqpErr).Str("queueName", c.queueName).Msg("rabbitmq connection lost")
			if !c.reconnect() {
				return
			}
		}
	}
}

// reconnect dials until it succeeds or the client is stopped, reporting
// whether a new connection was installed.
func (c *RabbitMqClient) reconnect() bool {
	for {
		select {
		case <-c.stopCh:
			return false
		default:
		}
		conn, ch, err := dial(c.amqpURI, c.queueName)
		if err == nil {
			c.mu.Lock()
			c.connection = conn
			c.channel = ch
			c.mu.Unlock()
			log.Info().Str("queueName", c.queueName).Msg("rabbitmq connection reestablished")
			return true
		}
		log.Error().Err(err).Str("queueName", c.queueName).Msg("rabbitmq reconnect failed")
		utils.Sleep(c.reconnectInterval)
	}
}
