package di

import (
	"net/http"

	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/server"
)

// HandlerService wraps the HTTP handler.
type HandlerService struct {
	Handler http.Handler
}

// NewRouteHandler creates the HTTP handler with all routes and middleware.
func NewRouteHandler(i do.Injector) (*HandlerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	emailSvc := do.MustInvoke[*EmailService](i)
	aiSvc := do.MustInvoke[*AIService](i)
	authSvc := do.MustInvoke[*AuthService](i)
	limitsSvc := do.MustInvoke[*RateLimitService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)

	handler := server.NewHandler(aiSvc.Service, storeSvc.DB, cacheSvc.Store, emailSvc.Sender)

	routes := server.SetupRoutes(server.Deps{
		Config:          cfgSvc.Get(),
		Handler:         handler,
		Authenticator:   authSvc.Authenticator,
		AICounters:      limitsSvc.AICounters,
		GeneralCounters: limitsSvc.GeneralCounters,
		Cache:           cacheSvc.Store,
	})

	return &HandlerService{Handler: routes}, nil
}
