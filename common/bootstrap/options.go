package bootstrap

import (
	"github.com/platewise/mealplanner/common/config"
	"github.com/platewise/mealplanner/common/db"
	"github.com/platewise/mealplanner/common/logger"
)

// Option adjusts how Setup assembles the components
type Option func(*options)

type options struct {
	config     *config.Config
	logger     *logger.Logger
	dbInitHook func(*db.DB) error
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithConfig uses the given config instead of loading from the
// environment
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger uses the given logger instead of building one from config
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithDBInitHook runs after the database connects, before anything
// else initializes. Used to apply the schema on startup.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}
