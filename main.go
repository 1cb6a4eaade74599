package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"docuflow/config"
	"docuflow/config/database"
	"docuflow/internal/document/repository"
	"docuflow/internal/document/service"
	"docuflow/pkg/logger"
	"docuflow/router"
	"docuflow/socket"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:           "docuflow",
	Short:         "DocuFlow document tracking server",
	Long:          `DocuFlow stores documents with a title and a review status and serves them over a small REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the documents table if it does not exist",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("docuflow v" + version)
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(migrateCmd, versionCmd)
}

func main() {
	// Load .env before flags and env are resolved.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Failed to read .env:", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Verbose)
	return cfg, nil
}

// openStore connects and migrates the configured backend. The returned
// *sql.DB is nil for the memory driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.DocumentRepository, *sql.DB, error) {
	if cfg.DB.Driver == config.DriverMemory {
		logger.Sugar.Warn("Using in-memory storage; documents are lost on exit")
		return repository.NewMemoryRepository(), nil, nil
	}

	db, err := database.Connect(ctx, cfg.DB.Driver, cfg.DB.DataSourceName(), cfg.DB.ConnectAttempts)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewSQLRepository(db, repository.Dialect(cfg.DB.Driver)), db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DB.Driver == config.DriverMemory {
		return errors.New("nothing to migrate for the memory driver")
	}
	_, db, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Sugar.Info("Documents table is ready")
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := socket.NewHub()
	go hub.Run(hubCtx)

	docService := service.NewDocumentService(repo, hub, cfg.RequestTimeout)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.Setup(docService, hub, cfg.StaticDir),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("DocuFlow Server active at http://%s", cfg.Addr())
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stopHub()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown; stopping
	// the hub closes them.
	stopHub()
	<-hub.Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
