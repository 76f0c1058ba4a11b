package ajan

import (
	"github.com/flashcache/flashcache/pkg/ajan/connfx"
	"github.com/flashcache/flashcache/pkg/ajan/httpfx"
	"github.com/flashcache/flashcache/pkg/ajan/logfx"
)

// BaseConfig is the ambient configuration every flashcache binary shares:
// process identity, logging, the admin HTTP surface, and the connfx
// registry backing its shard/replication connections.
type BaseConfig struct {
	Conn       connfx.Config `conf:"conn"`
	AppName    string        `conf:"name"    default:"flashcache"`
	AppEnv     string        `conf:"env"     default:"development"`
	AppVersion string        `conf:"version" default:"0.0.0"`

	Log  logfx.Config  `conf:"log"`
	HTTP httpfx.Config `conf:"http"`
}
