package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/server"
	"github.com/grantline/assist/internal/storage"
)

var (
	servePort    int
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local stub answer service",
	Long: `Run a self-contained stub answer service. It streams canned answers in
the same wire protocol as the real backend, which makes it useful for
local development and demos:

  assist serve --port 4406
  ASSIST_SERVER=http://localhost:4406 assist chat`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 4406, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Conversation storage directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	dataDir := serveDataDir
	if dataDir == "" {
		dataDir = appConfig.DataDir
	}

	cfg := server.DefaultConfig()
	cfg.Port = servePort
	cfg.DataDir = dataDir
	cfg.APIKey = appConfig.APIKey

	srv := server.New(cfg, storage.New(dataDir))

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", servePort).Str("dataDir", dataDir).Msg("stub answer service listening")
		fmt.Printf("Stub answer service listening on :%d\n", servePort)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
