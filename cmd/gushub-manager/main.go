package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gushub/manager/internal/catalog"
	"github.com/gushub/manager/internal/config"
	"github.com/gushub/manager/internal/database"
	"github.com/gushub/manager/internal/logging"
	"github.com/gushub/manager/internal/publisher"
	"github.com/gushub/manager/internal/reporting"
	ghadapter "github.com/gushub/manager/internal/remote/github"
	"github.com/gushub/manager/internal/remote/gushub"
	"github.com/gushub/manager/internal/server"
	"github.com/gushub/manager/internal/settings"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gushub-manager",
		Short: "Course content manager for GitHub and the Gushub LMS",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("settings-path", defaults.GetString("settings.path"), "Credentials file path")
	cmd.PersistentFlags().String("gushub-base-url", defaults.GetString("gushub.base_url"), "Gushub LMS base URL")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-mode", defaults.GetString("log.mode"), "Log mode (production, console)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "settings.path", "settings-path")
	bindFlag(cmd, "gushub.base_url", "gushub-base-url")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.mode", "log-mode")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, logging.ParseMode(appConfig.LogMode))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := catalog.NewStore(catalog.StoreConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	credentials, err := settings.Open(appConfig.SettingsPath)
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		Catalog:  store,
		Settings: credentials,
		Logger:   logger,
	}

	// Remote adapters need credentials; until setup completes the server runs
	// with catalog and setup routes only.
	if credentials.IsConfigured() {
		content, err := ghadapter.NewAdapter(ctx, ghadapter.AdapterConfig{
			Token:  credentials.GitHubToken(),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		metadata, err := gushub.NewClient(gushub.ClientConfig{
			BaseURL:     appConfig.GushubBaseURL,
			Credentials: credentials,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		publishing, err := publisher.NewService(publisher.ServiceConfig{
			Store:    store,
			Content:  content,
			Metadata: metadata,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		reports, err := reporting.NewService(reporting.ServiceConfig{
			Client: metadata,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		deps.Publisher = publishing
		deps.Reporting = reports
	} else {
		logger.Warn("credentials not configured, publishing routes disabled until setup")
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
