package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/rs/zerolog"

	"github.com/ecolearn/ecolearn-api/internal/database"
	"github.com/ecolearn/ecolearn-api/internal/repository"
	"github.com/ecolearn/ecolearn-api/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	var (
		driver        = fs.String("database-driver", "postgres", "database driver (postgres or sqlite)")
		dsn           = fs.String("database-url", "", "database connection string")
		adminEmail    = fs.String("admin-email", "", "email of the admin account to create or reset")
		adminPassword = fs.String("admin-password", "", "password for the admin account")
		badges        = fs.Bool("badges", true, "install the default badge catalogue")
		timeout       = fs.Duration("timeout", 30*time.Second, "overall seed timeout")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("ECOLEARN")); err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("service", "ecolearn-seed").Logger()

	db, err := database.Connect(*driver, *dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	seeder := service.NewSeedService(repository.NewUserRepository(db), repository.NewBadgeRepository(db), logger)

	if *adminEmail != "" || *adminPassword != "" {
		admin, created, err := seeder.SeedAdmin(ctx, *adminEmail, *adminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Info().Uint("user_id", admin.ID).Str("email", admin.Email).Bool("created", created).Msg("admin account ready")
	}

	if *badges {
		inserted, err := seeder.SeedBadges(ctx)
		if err != nil {
			return fmt.Errorf("seed badges: %w", err)
		}
		logger.Info().Int("inserted", inserted).Msg("badge catalogue ready")
	}

	return nil
}
