package cli

import (
	"coding_steps_backend/internal/app"
	"coding_steps_backend/internal/config"
	"coding_steps_backend/internal/curriculum"
	"coding_steps_backend/pkg/database"
	"coding_steps_backend/pkg/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd 不带子命令时等同于 serve
func NewRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "coding-steps",
		Short:         "Curriculum progression and grading server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configDir)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "directory containing config.yaml")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configDir)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.InitLogger(logger.Options{Level: cfg.LogLevel(), File: cfg.Log.File})
			defer logger.Log.Sync()

			db, err := database.InitDB(&cfg.Database, false)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Log.Info("Database migration completed", zap.String("driver", cfg.Database.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, newCurriculumCmd(&configDir))
	return rootCmd
}

func newCurriculumCmd(configDir *string) *cobra.Command {
	curriculumCmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Curriculum file utilities",
	}

	var file string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a curriculum file (defaults to the configured one)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" && !cmd.Flags().Changed("file") {
				if cfg, err := config.LoadConfig(*configDir); err == nil {
					path = cfg.Curriculum.Path
				}
			}

			c, err := curriculum.Load(path)
			if err != nil {
				return err
			}

			source := path
			if source == "" {
				source = "built-in curriculum"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tasks OK\n", source, c.Len())
			for i, t := range c.Tasks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-8s %s\n", i, t.ID, t.Type)
			}
			return nil
		},
	}
	validateCmd.Flags().StringVar(&file, "file", "", "curriculum YAML file")

	curriculumCmd.AddCommand(validateCmd)
	return curriculumCmd
}

func serve(ctx context.Context, configDir string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
