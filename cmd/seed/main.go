// Command seed migrates the schema, writes the default permission matrix and
// creates the first admin account. It is safe to run repeatedly.
package main

import (
	"errors"
	"fmt"
	"os"

	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/config"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/logger"
	"stockhub-backend/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "stockhub-seed")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	n, err := database.SeedPermissions(db)
	if err != nil {
		return err
	}
	log.Info("permission matrix seeded", zap.Int64("rows", n))

	email := auth.NormalizeEmail(os.Getenv("SEED_ADMIN_EMAIL"))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Info("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}
	created, err := ensureAdmin(db, email, password)
	if err != nil {
		return err
	}
	if created {
		log.Info("admin account created", zap.String("email", email))
	} else {
		log.Info("admin account already exists", zap.String("email", email))
	}
	return nil
}

func ensureAdmin(db *gorm.DB, email, password string) (bool, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
