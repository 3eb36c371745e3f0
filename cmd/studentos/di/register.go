package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Store (depends on Config)
// 4. Email (depends on Config, Logger)
// 5. Auth (depends on Config)
// 6. AI (depends on Config, Logger)
// 7. RateLimits (depends on Config)
// 8. Cache (depends on Config)
// 9. Handler (depends on all above services)
// 10. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewStore)
	do.Provide(i, NewEmailSender)
	do.Provide(i, NewAuth)
	do.Provide(i, NewAI)
	do.Provide(i, NewRateLimits)
	do.Provide(i, NewCache)
	do.Provide(i, NewRouteHandler)
	do.Provide(i, NewHTTPServer)
}
