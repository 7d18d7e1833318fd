package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zsprackett/timestream/internal/applog"
	"github.com/zsprackett/timestream/internal/config"
	"github.com/zsprackett/timestream/internal/stream"
	"github.com/zsprackett/timestream/internal/webserver"
)

var (
	serveHost    string
	servePort    int
	serveConsole bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "", "host address to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to serve on (overrides config)")
	serveCmd.Flags().BoolVar(&serveConsole, "console", true, "mirror logs to stderr")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Webserver.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Webserver.Port = servePort
	}

	if err := config.EnsureJWTSecret(cfgFile, &cfg); err != nil {
		return fmt.Errorf("persist JWT secret: %w", err)
	}

	logger, logCloser, err := applog.Init(applog.Options{
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		RetainDays: cfg.LogRetainDays,
		Console:    serveConsole,
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not init log file: %v\n", err)
		logger = slog.Default()
	} else {
		defer logCloser.Close()
	}

	interval, err := cfg.StreamInterval()
	if err != nil {
		return err
	}

	store, err := openDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	defer store.Close()

	srv := webserver.New(store, stream.New(interval), webserver.Config{
		Port: cfg.Webserver.Port,
		Host: cfg.Webserver.Host,
		TLS: webserver.TLSConfig{
			Mode:     cfg.Webserver.TLS.Mode,
			CertFile: cfg.Webserver.TLS.CertFile,
			KeyFile:  cfg.Webserver.TLS.KeyFile,
			CacheDir: cfg.Webserver.TLS.CacheDir,
		},
		Auth: webserver.AuthConfig{JWTSecret: cfg.Webserver.Auth.JWTSecret},
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
