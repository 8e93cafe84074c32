// Package repository provides template storage backends and DB bootstrap helpers
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/repository/tplfile"
	"github.com/UnendingLoop/PhotoWatermark/internal/repository/tplpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// TemplateRepo stores named watermark configs.
// Save is an upsert, Load and Delete fail with model.ErrNotFound for unknown names,
// List returns names in lexicographic order.
type TemplateRepo interface {
	Save(ctx context.Context, rec *model.TemplateRecord) error
	Load(ctx context.Context, name string) (*model.TemplateRecord, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

func NewFileTemplateRepo(dir string) (TemplateRepo, error) {
	repo, err := tplfile.New(dir)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func NewPostgresTemplateRepo(dbconn *dbpg.DB) TemplateRepo {
	return tplpostgres.PostgresRepo{DB: dbconn}
}

func ConnectWithRetries(appConfig *config.Config, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	dsnLink := appConfig.GetString("POSTGRES_DSN")
	if dsnLink == "" {
		return nil, errors.New("POSTGRES_DSN is empty")
	}

	var lastErr error
	for i := 0; i < retryCount; i++ {
		dbConn, err := dbpg.New(dsnLink, nil, &dbOptions)
		if err == nil {
			return dbConn, nil
		}
		lastErr = err
		log.Printf("Connection try #%d to PGDB failed: %s\nWaiting %v before next retry...", i+1, err, idleTime)
		time.Sleep(idleTime)
	}

	return nil, fmt.Errorf("failed to connect to DB after %d tries: %w", retryCount, lastErr)
}

func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var lastErr error
	for i := 0; i < retries; i++ {
		if lastErr = runMigrate(db, migrationsPath); lastErr == nil {
			return nil
		}
		log.Printf("Migration try #%d failed: %v. Waiting %v before next try...", i+1, lastErr, idle)
		time.Sleep(idle)
	}
	return fmt.Errorf("migrations failed after %d tries: %w", retries, lastErr)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+absPath, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	log.Println("Templates schema is up to date")
	return nil
}
