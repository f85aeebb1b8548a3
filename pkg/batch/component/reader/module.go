package reader

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
)

// Module provides the FileLoader as the RecordLoader port.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewFileLoader,
		fx.As(new(port.RecordLoader)),
	)),
)
