package streams

import "go.uber.org/fx"

// Module wires the stream matcher, its LISTEN/NOTIFY listener, the
// bun-backed Requery/Prefilter wiring, and the HTTP subscription
// endpoint.
var Module = fx.Module("streams",
	fx.Provide(NewMatcher),
	fx.Provide(NewWirer),
	fx.Provide(NewHandler),
	fx.Invoke(NewListener),
	fx.Invoke(RegisterRoutes),
)
