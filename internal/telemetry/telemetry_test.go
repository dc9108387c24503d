package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/KirkDiggler/rpg-tabletop/internal/telemetry"
)

type TelemetryTestSuite struct {
	suite.Suite
	previous any
}

func TestTelemetryTestSuite(t *testing.T) {
	suite.Run(t, new(TelemetryTestSuite))
}

func (s *TelemetryTestSuite) SetupTest() {
	s.previous = otel.GetTracerProvider()
}

func (s *TelemetryTestSuite) TestNoopWhenEndpointEmpty() {
	shutdown, err := telemetry.Setup(context.Background(), "rpg-tabletop-test", "  ")
	s.Require().NoError(err)
	s.NoError(shutdown(context.Background()))
	s.Equal(s.previous, otel.GetTracerProvider())
}

func (s *TelemetryTestSuite) TestInstallsProviderWhenEndpointSet() {
	// Non-routable address: nothing is exported because no spans are recorded
	shutdown, err := telemetry.Setup(context.Background(), "rpg-tabletop-test", "http://192.0.2.1:4318")
	s.Require().NoError(err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	s.True(ok)
	s.NoError(shutdown(context.Background()))
}
