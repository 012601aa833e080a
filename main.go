package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/locum-staffing/config"
	"github.com/yeremiapane/locum-staffing/database"
	"github.com/yeremiapane/locum-staffing/router"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

func main() {
	utils.InitLogger()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "locum-staffing",
		Short:        "Healthcare shift staffing API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := openDatabase()
			return err
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load hospitals and demo users from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.SeedFile
			}
			data, err := database.LoadSeedFile(file)
			if err != nil {
				return err
			}
			if err := database.Seed(db, data); err != nil {
				return err
			}
			utils.InfoLogger.Printf("Seed data loaded from %s", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (defaults to SEED_FILE)")
	return cmd
}

// openDatabase loads the config, connects and migrates.
func openDatabase() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("Invalid configuration")
		return nil, nil, err
	}
	utils.InitLoggerWithLevel(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("Failed to connect to database")
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.WithError(err).Error("Failed to migrate database")
		return nil, nil, err
	}
	return cfg, db, nil
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := router.NewApp(db, cfg)
	app.Start(ctx)
	defer app.Monitor.Stop()

	r, err := router.SetupRouter(app)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			utils.ErrorLogger.WithError(err).Error("Server stopped")
			return err
		}
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
