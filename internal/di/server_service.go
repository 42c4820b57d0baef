package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/bizcache/internal/server"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *server.Server
}

// NewHandler builds the operator routes and the optional upstream gateway.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	metricsSvc := do.MustInvoke[*MetricsService](i)

	handler, err := server.SetupRoutes(server.Deps{
		Config:      cfgSvc.Runtime(),
		Facade:      cacheSvc.Facade,
		Invalidator: cacheSvc.Invalidator,
		Gatherer:    metricsSvc.Registry,
		Metrics:     metricsSvc.HTTP,
		Logger:      *loggerSvc.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	return &HandlerService{Handler: handler}, nil
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)
	cfg := cfgSvc.Get()

	srv := server.NewServer(
		cfg.Server.Listen,
		handlerSvc.Handler,
		cfg.Server.GetTimeoutOption().OrEmpty(),
		cfg.Server.EnableHTTP2,
	)

	return &ServerService{Server: srv}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Server.Shutdown(ctx)
	}
	return nil
}
