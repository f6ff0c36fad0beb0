package main

import (
	"context"
	"log"
	"os"

	"github.com/Hunter5Thompson/Alpha-01/internal/bootstrap"
	"github.com/Hunter5Thompson/Alpha-01/internal/config"
	"github.com/Hunter5Thompson/Alpha-01/internal/server"
	"github.com/Hunter5Thompson/Alpha-01/internal/tracer"
	"github.com/Hunter5Thompson/Alpha-01/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// Pick up documents already sitting in the data directory.
	if cfg.Ingest.AutoIngest {
		go func() {
			if _, err := os.Stat(cfg.Ingest.DataDir); err != nil {
				log.Printf("Auto-ingest skipped: %v", err)
				return
			}
			log.Printf("Background: Auto-ingesting documents from %s...", cfg.Ingest.DataDir)
			batch, err := container.IngestService.AutoIngestDirectory(context.Background(), cfg.Ingest.DataDir)
			if err != nil {
				log.Printf("Auto-ingest error: %v", err)
				return
			}
			log.Printf("Auto-ingest done: %d stored, %d failed", batch.Stored, batch.Failed)
		}()
	}

	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}
