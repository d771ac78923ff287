// Package providerstest checks fx dependency graphs of commands.
package providerstest

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"go.od2.network/tubeq/cmd/providers"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"
)

// Validate checks that all dependencies of the options can be resolved, without running any constructors.
func Validate(t *testing.T, opts ...fx.Option) {
	opts = append(opts,
		fx.Supply(
			zaptest.NewLogger(t),
			new(cobra.Command),
			[]string{},
		),
		fx.Logger(testFxLogger{t}),
		fx.Provide(providers.Providers...))
	assert.NoError(t, fx.ValidateApp(opts...))
}

type testFxLogger struct {
	testing.TB
}

func (l testFxLogger) Printf(fmt string, args ...interface{}) {
	l.Logf(fmt, args...)
}
