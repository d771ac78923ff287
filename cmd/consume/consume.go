package consume

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.od2.network/tubeq/cmd/providers"
	"go.od2.network/tubeq/pkg/queue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Cmd = cobra.Command{
	Use:   "consume",
	Short: "Run queue consumers",
	Long: "Reserves jobs from beanstalkd and handles them.\n" +
		"Failed jobs are retried or dead-lettered to Redis.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		app := providers.NewApp(cmd, fx.Invoke(Run))
		app.Run()
	},
}

// Consume config keys.
const (
	ConfProcesses         = "consume.processes"
	ConfMetricsListenNet  = "metrics.listen.net"
	ConfMetricsListenAddr = "metrics.listen.addr"
)

func init() {
	viper.SetDefault(ConfProcesses, uint(1))
	viper.SetDefault(ConfMetricsListenNet, "tcp")
	viper.SetDefault(ConfMetricsListenAddr, "")
}

type consumeIn struct {
	fx.In

	Context   context.Context
	Lifecycle fx.Lifecycle
	Shutdown  fx.Shutdowner
	Config    queue.Config
	Store     queue.ListStore
	Codec     queue.Codec
	Events    queue.EventSink
}

// Run starts consume.processes consumers, each with its own beanstalkd connection.
// The app shuts down once all consumers returned.
func Run(log *zap.Logger, inputs consumeIn) error {
	processes := viper.GetUint(ConfProcesses)
	if processes == 0 {
		return fmt.Errorf("%s must be at least 1", ConfProcesses)
	}
	if err := serveMetrics(log, inputs.Lifecycle); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(inputs.Context)
	var wg sync.WaitGroup
	inputs.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			for i := uint(0); i < processes; i++ {
				wg.Add(1)
				go func(i uint) {
					defer wg.Done()
					consume(ctx, log.With(zap.Uint("process", i)), inputs)
				}(i)
			}
			go func() {
				wg.Wait()
				log.Info("All consumers exited")
				_ = inputs.Shutdown.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			log.Info("Waiting for consumers to exit")
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				log.Info("Finished")
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return nil
}

func consume(ctx context.Context, log *zap.Logger, inputs consumeIn) {
	client, err := providers.DialBeanstalk(ctx, log)
	if err != nil {
		log.Error("Failed to start consumer", zap.Error(err))
		return
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn("Failed to close beanstalkd client", zap.Error(err))
		}
	}()
	// Shutdown stops the loop between jobs, the running job still gets resolved.
	driver := &queue.Driver{
		Log:    log,
		Queue:  client,
		Store:  inputs.Store,
		Codec:  inputs.Codec,
		Events: inputs.Events,
		Runner: queue.ContextRunner{Ctx: ctx},
		Config: inputs.Config,
	}
	if err := driver.Consume(ctx); err != nil {
		log.Error("Consumer exited", zap.Error(err))
	}
}

func serveMetrics(log *zap.Logger, lc fx.Lifecycle) error {
	network := viper.GetString(ConfMetricsListenNet)
	addr := viper.GetString(ConfMetricsListenAddr)
	if addr == "" {
		return nil
	}
	log.Info("Starting metrics server",
		zap.String(ConfMetricsListenNet, network),
		zap.String(ConfMetricsListenAddr, addr))
	sock, err := providers.Listen(network, addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", providers.SetupPrometheus())
	providers.LifecycleServe(log, lc, sock, providers.HTTPServer{Server: &http.Server{Handler: mux}})
	return nil
}
