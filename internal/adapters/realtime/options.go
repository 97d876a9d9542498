package realtime

import "github.com/okian/vivaran/pkg/logger"

// Option configures a Database.
type Option func(*Database)

// WithQueueCapacity bounds the number of pending change notifications.
func WithQueueCapacity(capacity int) Option {
	return func(d *Database) {
		if capacity > 0 {
			d.queueCapacity = capacity
		}
	}
}

// WithLogger sets the database logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Database) {
		if l != nil {
			d.log = l
		}
	}
}
