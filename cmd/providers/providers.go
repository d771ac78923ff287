package providers

import (
	"context"

	"github.com/spf13/cobra"
	"go.od2.network/tubeq/pkg/appctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Log is the global logger.
var Log *zap.Logger

// Providers holds constructors for shared components.
var Providers = []interface{}{
	// beanstalk.go
	NewBeanstalk,
	// events.go
	NewEventSink,
	// providers.go
	NewContext,
	// queue.go
	NewQueueConfig,
	NewRegistry,
	NewCodec,
	NewStore,
	NewDriver,
	// redis.go
	NewRedis,
}

// NewApp creates a long-running application for a command.
func NewApp(cmd *cobra.Command, opts ...fx.Option) *fx.App {
	baseOpts := []fx.Option{
		fx.Provide(Providers...),
		fx.Supply(cmd),
		fx.Supply(Log),
		fx.Logger(zap.NewStdLog(Log)),
	}
	baseOpts = append(baseOpts, opts...)
	return fx.New(baseOpts...)
}

// NewCmd creates a cobra run function for one-shot commands.
// The invoke function runs once all of its dependencies are built.
// Returning an error from it fails the command.
func NewCmd(invoke interface{}) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		app := fx.New(
			fx.Provide(Providers...),
			fx.Supply(cmd),
			fx.Supply(args),
			fx.Supply(Log),
			fx.Logger(zap.NewStdLog(Log)),
			fx.Invoke(invoke),
		)
		if err := app.Err(); err != nil {
			Log.Fatal("Command failed", zap.Error(err))
		}
	}
}

// NewContext returns a context that closes on interrupts or when the app stops.
func NewContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := context.WithCancel(appctx.Context())
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
	return ctx
}
