package remote

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// Client is the transport used for a run.
type Client interface {
	port.CallChannel
	port.SessionRegistry
}

// NewClient selects the transport by connection.mode.
func NewClient(cfg *config.ConnectionConfig) Client {
	if cfg.Mode == config.ConnectionModeSimulate {
		logger.Infof("Remote: using the simulator (latency %s, failure rate %.2f, pending rate %.2f).",
			cfg.Simulate.Latency, cfg.Simulate.FailureRate, cfg.Simulate.PendingRate)
		return NewSimulator(cfg)
	}
	logger.Infof("Remote: connecting to %s as '%s'.", cfg.Host, cfg.User)
	return NewHTTPClient(cfg)
}

// Module provides the transport as port.CallChannel and port.SessionRegistry.
var Module = fx.Options(
	fx.Provide(
		NewClient,
		func(c Client) port.CallChannel { return c },
		func(c Client) port.SessionRegistry { return c },
	),
)
