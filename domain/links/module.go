package links

import "go.uber.org/fx"

// Module provides the link edge materializer.
var Module = fx.Module("links",
	fx.Provide(NewMaterializer),
)
