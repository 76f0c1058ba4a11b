package connfx

import (
	"errors"
	"time"
)

var (
	ErrInvalidConnectionBehavior = errors.New("invalid connection behavior")
	ErrInvalidConnectionProtocol = errors.New("invalid connection protocol")
	ErrInvalidConfigType         = errors.New("invalid config type")
)

// Config represents the main configuration for connfx.
type Config struct {
	Targets map[string]ConfigTarget `conf:"targets"`
}

// ConfigTarget represents the configuration data for a connection.
// Protocol is one of "store" (a shard Store) or "replication-slave" (a
// master's view of one connected slave transport). Factories for both are
// registered by the node wiring layer, not by this package, so connfx stays
// free of any dependency on the store/replication domain types.
type ConfigTarget struct {
	Properties map[string]any `conf:"properties"`

	Protocol string `conf:"protocol"`
	Host     string `conf:"host"`

	Port    int           `conf:"port"`
	Timeout time.Duration `conf:"timeout"`
}
