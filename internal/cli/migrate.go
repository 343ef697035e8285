package cli

import (
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/vietddude/swapmatch/internal/infra/storage/postgres"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Run database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	Run:       runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "directory with migration files")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("No database configured")
		os.Exit(1)
	}

	db, err := postgres.NewDB(cmd.Context(), cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("Failed to set goose dialect", "error", err)
		os.Exit(1)
	}

	switch args[0] {
	case "up":
		err = goose.Up(db.SQLDB(), migrationsDir)
	case "down":
		err = goose.Down(db.SQLDB(), migrationsDir)
	case "status":
		err = goose.Status(db.SQLDB(), migrationsDir)
	}
	if err != nil {
		slog.Error("Migration failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}
