package cmd

import (
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/config"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Uint("version", 0, "migrate to this version instead of the latest")
	migrateCmd.Flags().Int("force", 0, "force the schema version before migrating")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("version") {
		version, _ := cmd.Flags().GetUint("version")
		cfg.DatabaseMigrationVersion = int(version)
	}
	if cmd.Flags().Changed("force") {
		cfg.DatabaseMigrationForce, _ = cmd.Flags().GetInt("force")
	}

	logger, zapLogger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := database.Connect(cmd.Context(), logger, cfg.Database())
	if err != nil {
		return err
	}
	defer db.Close()

	return migrateDatabase(cfg, db, logger)
}

func migrateDatabase(cfg config.Config, db database.DB, logger ectologger.Logger) error {
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.MigratePostgres(db, cfg.DatabaseName)
}
