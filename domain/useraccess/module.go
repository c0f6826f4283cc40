package useraccess

import "go.uber.org/fx"

// Module provides the permission masker.
var Module = fx.Module("useraccess",
	fx.Provide(NewMasker),
)
