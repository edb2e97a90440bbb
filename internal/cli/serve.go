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

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rim/internal/fakeapi"
	"github.com/mesh-intelligence/rim/internal/logging"
	"github.com/mesh-intelligence/rim/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		addr string
		seed string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory REST server for the configured collections",
		Long: "Serve starts a development server that stores documents in memory and\n" +
			"speaks the REST conventions rimctl and rest.Client expect. --seed loads a\n" +
			"JSON file mapping collection names to lists of documents.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadSettings(flags)
			if err != nil {
				return err
			}
			logger := logging.New(st.LogLevel, st.LogFormat)
			defer logger.Sync()
			log := logging.For(logger, "fakeapi")

			api := fakeapi.New(st.Collections, log)
			if seed != "" {
				if err := seedFrom(api, seed); err != nil {
					return err
				}
			}

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{Addr: addr, Handler: api.Router(), ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Infow("Serving", "addr", addr, "collections", len(st.Collections))
				errCh <- srv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Infow("Shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&seed, "seed", "", "JSON file of documents to preload")
	return cmd
}

// seedFrom loads {"Collection": [documents...]} from path into api.
func seedFrom(api *fakeapi.Server, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed map[string][]types.Document
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("%w: seed %s: %v", errUsage, path, err)
	}
	for name, docs := range seed {
		if err := api.Seed(name, docs...); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return nil
}
