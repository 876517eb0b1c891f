package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/Seungki99/COMP2537-assignment1/core"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	accounts := core.NewPgAccountRepository(db)
	if err := accounts.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	hasher := core.NewHasher(cfg.BcryptCost)
	sessionStore := core.NewRedisSessionStore(redisClient)
	sessions := core.NewSessionManager(sessionStore, cfg)
	authService := core.NewAuthService(accounts, hasher, sessions)

	catalog, err := core.LoadCatalog()
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	router := core.NewRouter(cfg, authService, catalog)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
