package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/server"
)

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *server.Server

	drainTimeout time.Duration
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	handlerSvc := do.MustInvoke[*HandlerService](i)

	cfg := cfgSvc.Get()
	srv := server.NewServer(cfg.Server.Listen, handlerSvc.Handler, cfg.Server.HTTP2)

	return &ServerService{
		Server:       srv,
		drainTimeout: cfg.Server.GetShutdownTimeout(),
	}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		return s.Server.Shutdown(ctx)
	}
	return nil
}
