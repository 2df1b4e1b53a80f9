package config

import (
	"errors"
	"fmt"
)

// QueueConfig configures the RabbitMQ publisher for ledger events. The whole
// section is optional; leaving it out disables queue publishing.
type QueueConfig struct {
	Url               string `mapstructure:"url"`
	QueueUser         string `mapstructure:"queue-user"`
	QueuePassword     string `mapstructure:"queue-password"`
	EventQueueName    string `mapstructure:"event-queue-name"`
	PublishTimeout    int    `mapstructure:"publish-timeout"`
	ReconnectInterval int    `mapstructure:"reconnect-interval"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return errors.New("missing queue url")
	}

	if cfg.QueueUser == "" {
		return errors.New("missing queue user")
	}

	if cfg.QueuePassword == "" {
		return errors.New("missing queue password")
	}

	if cfg.EventQueueName == "" {
		return errors.New("missing event queue name")
	}

	if cfg.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be a positive integer")
	}

	if cfg.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect interval must be a positive integer")
	}

	return nil
}
