// Package main 是数据库迁移命令行工具，
// 封装 golang-migrate，支持向上/向下迁移、指定版本迁移与脏状态修复。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/config"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/database"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -action=[up|down|version|force] [options]\n\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Examples:
  migrate -action=up                   apply all pending migrations
  migrate -action=down -steps=2        roll back two migrations
  migrate -action=version -target=3    migrate to version 3
  migrate -action=force -target=0      reset version and clear dirty state`)
	os.Exit(1)
}

func main() {
	var (
		action = flag.String("action", "up", "migration action: up, down, version, force")
		steps  = flag.Int("steps", 1, "number of steps for down migration")
		target = flag.Uint("target", 0, "target version for version/force migration")
	)
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "migrate", cfg.App.Version)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.New(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to connect to database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database", "err", err)
		}
	}()

	dir := cfg.Migrations.Dir
	switch *action {
	case "up":
		if err := db.RunMigrations(dir); err != nil {
			lg.Sugar().Fatalw("up migration failed", "err", err)
		}
		lg.Info("up migrations completed")

	case "down":
		if err := db.MigrateDown(dir, *steps); err != nil {
			lg.Sugar().Fatalw("down migration failed", "steps", *steps, "err", err)
		}
		lg.Sugar().Infow("down migrations completed", "steps", *steps)

	case "version":
		if *target == 0 {
			lg.Fatal("a non-zero -target is required for version migration")
		}
		if err := db.MigrateToVersion(dir, *target); err != nil {
			lg.Sugar().Fatalw("version migration failed", "target", *target, "err", err)
		}
		lg.Sugar().Infow("migrated to version", "target", *target)

	case "force":
		// force 允许 target=0，表示回到未迁移状态
		lg.Sugar().Warnw("forcing migration version, dirty state will be cleared", "target", *target)
		if err := db.ForceMigrationVersion(dir, *target); err != nil {
			lg.Sugar().Fatalw("force migration failed", "target", *target, "err", err)
		}
		lg.Info("migration version forced")

	default:
		usage()
	}
}
