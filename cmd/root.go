/*
Package cmd implements the timestream command line: the HTTP server and a
handful of operator commands against its catalog.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zsprackett/timestream/internal/config"
	"github.com/zsprackett/timestream/internal/db"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          "timestream",
		Short:        "Server-sent time stream with a small book catalog",
		Long:         longRoot,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func openDB(path string) (*db.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	store, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

var longRoot = `
timestream pushes the server's wall-clock time to connected clients once a
second over server-sent events (GET /api/sse/time) or a websocket
(GET /api/ws/time), next to a small JSON book catalog and a weather
forecast endpoint.
`
