// Command create-user registers a user, seeds the default categories and
// prints an API token for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	username := flag.String("username", "", "username (required)")
	email := flag.String("email", "", "email address for monthly reports")
	ttl := flag.Duration("ttl", 0, "token lifetime, 0 for no expiry")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required to issue a token")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backendResult := cli.InitStore(ctx, logger, cfg)
	defer func() {
		if err := backendResult.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()
	store := backendResult.Store

	u, err := store.CreateUser(ctx, *username, *email)
	if err != nil {
		logger.Error("Failed to create user", "error", err, "username", *username)
		os.Exit(1)
	}

	ledger := services.NewLedgerService(store, nil, services.NewAggregator(store))
	if err := ledger.EnsureDefaultCategories(ctx, u.ID); err != nil {
		logger.Error("Failed to seed categories", "error", err, applog.FieldUserID, u.ID)
		os.Exit(1)
	}

	token, err := apphttp.NewAuthenticator([]byte(cfg.JWTSecret)).IssueToken(u.ID, *ttl)
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}

	fmt.Printf("user_id=%d\ntoken=%s\n", u.ID, token)
}
