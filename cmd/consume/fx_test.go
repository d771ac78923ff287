package consume

import (
	"testing"

	"go.od2.network/tubeq/cmd/providers/providerstest"
	"go.uber.org/fx"
)

func TestApp(t *testing.T) {
	providerstest.Validate(t, fx.Invoke(Run))
}
