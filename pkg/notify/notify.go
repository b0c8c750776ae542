// Package notify decouples outbound mail from the request that caused it.
// Producers enqueue after their state change has committed; delivery happens
// elsewhere and its outcome never reaches the producer.
package notify

import (
	"context"

	"github.com/Astemirdum/library-cms/pkg/mailer"
)

type Config struct {
	Workers   int `yaml:"workers" envconfig:"NOTIFY_WORKERS" default:"4"`
	QueueSize int `yaml:"queueSize" envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
}

// Notifier accepts messages without blocking and without reporting delivery.
type Notifier interface {
	Notify(ctx context.Context, msg mailer.Message)
}

// Deliver hands one message to the mail transport.
type Deliver func(ctx context.Context, msg mailer.Message) error
