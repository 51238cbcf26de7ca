package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kobo-pay/kobo_pay/internal/config"
	"github.com/kobo-pay/kobo_pay/internal/infra"
	"github.com/kobo-pay/kobo_pay/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ctx := context.Background()
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		logger.Error("list migrations", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Error("no migrations found", "dir", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			logger.Error("read migration", "file", file, "error", err)
			os.Exit(1)
		}
		if _, err := db.Exec(ctx, string(sql)); err != nil {
			logger.Error("apply migration", "file", file, "error", err)
			os.Exit(1)
		}
		logger.Info("applied migration", "file", file)
	}

	logger.Info("migrations complete", "count", len(files))
}
