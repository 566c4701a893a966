package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	_ "github.com/lib/pq"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/config"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/repository/postgres"
	"boardgame-rental-backend/internal/security"
	"boardgame-rental-backend/internal/service"
)

func main() {
	setupPath := flag.String("data", "config/seed.dev.yaml", "Path to the seed data file")
	flag.Parse()

	setupData, err := readSetupFile(resolvePath(*setupPath))
	if err != nil {
		log.Fatalf("Failed to read setup file: %v", err)
	}

	cfg, err := config.Load(resolvePath(setupData.ConfigFile))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if cfg.Store.Driver != "postgres" {
		log.Fatalf("Seeding needs the postgres store, got %q", cfg.Store.Driver)
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Printf("✓ Connected to database: %s@%s:%d/%s",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	store := postgres.NewStore(db)
	tokens := security.NewTokenManager(cfg.JWT.Secret, 0)

	// Seeding happens before any server is up, so nothing listens for events.
	seeder := &seeder{
		auth:      service.NewAuthService(store.Repositories, tokens),
		inventory: service.NewInventoryService(store, store.Repositories, broadcast.Discard),
	}
	if err := seeder.populate(ctx, setupData); err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}

	log.Println("✅ Seed data successfully populated!")
}
