package query

import "go.uber.org/fx"

// Module provides the query service, its HTTP handler, and its route.
var Module = fx.Module("query",
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
