package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Cache (depends on Config, Logger) - store, facade and invalidator
// 4. Metrics (depends on Cache)
// 5. Handler (depends on Config, Logger, Cache, Metrics)
// 6. Server (depends on Handler, Config).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCache)
	do.Provide(i, NewMetrics)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}
