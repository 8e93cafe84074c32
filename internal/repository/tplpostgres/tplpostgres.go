// Package tplpostgres keeps templates in a Postgres table
package tplpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Save(ctx context.Context, rec *model.TemplateRecord) error {
	if err := model.ValidateTemplateName(rec.Name); err != nil {
		return err
	}
	if rec.UpdatedAt == nil {
		now := time.Now().UTC()
		rec.UpdatedAt = &now
	}

	// single statement upsert, created_at of an existing row is kept
	query := `INSERT INTO templates (name, description, config, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	ON CONFLICT (name) DO UPDATE
	SET description = EXCLUDED.description, config = EXCLUDED.config, updated_at = EXCLUDED.updated_at
	RETURNING created_at`

	var created time.Time
	if err := p.DB.QueryRowContext(ctx, query, rec.Name, rec.Description, rec.Config, rec.UpdatedAt).Scan(&created); err != nil {
		return fmt.Errorf("%w: failed to save template %q: %v", model.ErrPersistence, rec.Name, err)
	}
	rec.CreatedAt = &created
	return nil
}

func (p PostgresRepo) Load(ctx context.Context, name string) (*model.TemplateRecord, error) {
	query := `SELECT name, description, config, created_at, updated_at 
	FROM templates 
	WHERE name = $1`
	var rec model.TemplateRecord

	err := p.DB.QueryRowContext(ctx, query, name).Scan(&rec.Name,
		&rec.Description,
		&rec.Config,
		&rec.CreatedAt,
		&rec.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrNotFound // 404
		default:
			return nil, fmt.Errorf("%w: failed to load template %q: %v", model.ErrPersistence, name, err) // 500
		}
	}
	return &rec, nil
}

func (p PostgresRepo) List(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM templates ORDER BY name COLLATE "C"`

	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list templates: %v", model.ErrPersistence, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	names := make([]string, 0)
	for rows.Next() {
		name := ""
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
		}
		names = append(names, name)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, rows.Err())
	}

	return names, nil
}

func (p PostgresRepo) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM templates
	WHERE name = $1
	RETURNING name`

	var deleted string
	if err := p.DB.QueryRowContext(ctx, query, name).Scan(&deleted); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrNotFound // 404
		default:
			return fmt.Errorf("%w: failed to delete template %q: %v", model.ErrPersistence, name, err) // 500
		}
	}
	return nil
}
