package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"campus-timetable/backend/pkg/database"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "数据库迁移",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "执行全部未应用的迁移",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withSQLDB(func(m migrator) error { return m.up() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "回滚迁移",
	RunE: func(_ *cobra.Command, _ []string) error {
		if migrateSteps <= 0 {
			return fmt.Errorf("--steps 必须大于 0")
		}
		return withSQLDB(func(m migrator) error { return m.down(migrateSteps) })
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "回滚的迁移数量")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

type migrator struct {
	up   func() error
	down func(steps int) error
}

func withSQLDB(fn func(migrator) error) error {
	cfg, logger, _, err := loadBase()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return fn(migrator{
		up:   func() error { return database.RunMigrations(sqlDB, logger) },
		down: func(steps int) error { return database.RollbackMigrations(sqlDB, steps, logger) },
	})
}
