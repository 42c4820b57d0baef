package di

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/server"
)

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
	closer io.Closer
}

// NewLogger creates the zerolog logger from configuration and hands it to
// the cache package.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, closer, err := server.NewLogger(cfgSvc.Get().Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	cache.SetLogger(&logger)

	return &LoggerService{Logger: &logger, closer: closer}, nil
}

// Shutdown releases the log file, if any.
func (l *LoggerService) Shutdown() error {
	return l.closer.Close()
}
