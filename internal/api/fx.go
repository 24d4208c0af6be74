// Package api serves the reading list over HTTP.
//
// It lets callers trigger a sweep and look at how recent ones went, adjust the
// read and delete thresholds, and add, list, remove or import entries.
package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(
		NewServer,
	),
)
