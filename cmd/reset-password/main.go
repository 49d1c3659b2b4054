// Command reset-password sets a user's password directly in the database and
// signs out every session of that user.
package main

import (
	"context"
	"flag"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/repository"
	"pharmacy-pos/pkg/config"
	"pharmacy-pos/pkg/database"
	"pharmacy-pos/pkg/logger"
)

func main() {
	email := flag.String("email", "admin@example.com", "account to reset")
	password := flag.String("password", "", "new password (min 6 characters)")
	flag.Parse()

	// 1. Load Env
	cfg, envLoaded, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if !envLoaded {
		log.Warn(".env file not found, relying on system env")
	}
	if len(*password) < 6 || len(*password) > 72 {
		log.Fatal("-password must be between 6 and 72 characters")
	}

	// 2. Setup Database
	db, err := database.Connect(cfg.DSN(), log, database.Options{})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find user
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.WithError(err).WithField("email", *email).Fatal("user not found")
	}

	// 4. Hash and store; rotating the token version ends open sessions
	if err := user.SetPassword(*password); err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}
	if err := users.UpdatePassword(ctx, user.ID, user.Password, uuid.NewString()); err != nil {
		log.WithError(err).Fatal("failed to update password")
	}

	log.WithField("email", user.Email).Info("password reset")
}
