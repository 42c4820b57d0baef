package cache

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// base is the logger cache parts derive from. Nil means discard.
var base atomic.Pointer[zerolog.Logger]

// SetLogger routes cache logs to l. Entries are tagged component=cache and
// a part naming the emitter (facade, redis, local, ...). Parts capture the
// logger when they are built, so call SetLogger before creating stores.
//
// Example:
//
//	logger := zerolog.New(os.Stdout).Level(zerolog.DebugLevel)
//	cache.SetLogger(&logger)
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		base.Store(nil)
		return
	}
	cp := *l
	base.Store(&cp)
}

// partLogger returns the package logger tagged with part.
func partLogger(part string) zerolog.Logger {
	l := zerolog.Nop()
	if b := base.Load(); b != nil {
		l = *b
	}
	return l.With().Str("component", "cache").Str("part", part).Logger()
}
