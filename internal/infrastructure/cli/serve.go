package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/internal/infrastructure/httpapi"
	"github.com/felixgeelhaar/shiplift/internal/infrastructure/wiring"
)

const serveDrainTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST and streaming status API",
	Long: `Serve the REST and streaming status API.

Exposes scan and migration control under /api, live progress over
/ws/progress (websocket) and /api/events (SSE). Intended for the web
dashboard and for automation that prefers HTTP over the CLI.`,
	RunE: runServeCmd,
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	services, err := wiring.BuildAppServices(wiring.Options{
		Actor:  "api",
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer services.Close()

	server := httpapi.NewServer(serveAddr, services, httpapi.WithVersion(Version))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s (Ctrl-C to stop)\n", serveAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), serveDrainTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", httpapi.DefaultAddr, "Listen address")
	RootCmd.AddCommand(serveCmd)
}
