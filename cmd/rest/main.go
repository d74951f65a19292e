package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arcane-chat-be/internal/bootstrap"
	"arcane-chat-be/internal/config"
	"arcane-chat-be/internal/server"
	"arcane-chat-be/internal/tracer"
	"arcane-chat-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.Name)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Database (optional: guests only without it)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.Open(cfg.Database.Connection, database.Options{Verbose: !cfg.IsProduction()})
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, gormDB, cfg)
	defer container.Close()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
