package main

import (
	"log"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/seantiz/docforge/internal/api"
	"github.com/seantiz/docforge/internal/config"
	"github.com/seantiz/docforge/internal/convert"
	"github.com/seantiz/docforge/internal/renderer"
	"github.com/seantiz/docforge/internal/store"
	"github.com/seantiz/docforge/internal/workspace"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("docforge: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"tmp_root", cfg.TmpRoot,
		"engine_bin", cfg.EngineBin,
		"max_concurrent", cfg.MaxConcurrent,
		"convert_timeout_s", cfg.ConvertTimeoutS,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	alloc, err := workspace.NewAllocator(cfg.TmpRoot, logger)
	if err != nil {
		log.Fatalf("failed to prepare workspace root: %v", err)
	}

	rend := renderer.NewSoffice(cfg.EngineBin, logger)
	coord := convert.NewCoordinator(
		alloc,
		rend,
		db,
		cfg.MaxConcurrent,
		time.Duration(cfg.ConvertTimeoutS)*time.Second,
		logger,
	)

	srv := api.NewServer(api.Options{
		Addr:           cfg.ListenAddr,
		APIKey:         cfg.APIKey,
		MaxUploadMB:    cfg.MaxUploadMB,
		ConvertTimeout: time.Duration(cfg.ConvertTimeoutS) * time.Second,
	}, coord, db, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
