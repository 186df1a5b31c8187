package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/internal/infrastructure/wiring"
)

// cliLogger returns the logger commands hand to the services. Commands stay
// quiet unless --verbose asks for the development logger.
func cliLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadServices() (*wiring.AppServices, error) {
	return loadServicesWithWorkers(0)
}

func loadServicesWithWorkers(workers int) (*wiring.AppServices, error) {
	services, err := wiring.BuildAppServices(wiring.Options{
		Actor:   "cli",
		Logger:  cliLogger(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}
	return services, nil
}
