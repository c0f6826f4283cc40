package typeregistry

import "go.uber.org/fx"

// Module provides the type registry.
var Module = fx.Module("typeregistry",
	fx.Provide(NewRegistry),
)
