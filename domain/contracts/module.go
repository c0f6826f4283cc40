package contracts

import "go.uber.org/fx"

// Module provides the contract store.
var Module = fx.Module("contracts",
	fx.Provide(NewStore),
)
