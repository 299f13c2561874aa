package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/repository"
)

type psychiatristRepository struct {
	BaseRepository
}

func NewPsychiatristRepository(base BaseRepository) repository.PsychiatristRepository {
	return &psychiatristRepository{base}
}

func (r *psychiatristRepository) Create(ctx context.Context, psychiatrist *model.Psychiatrist) error {
	query := `
		INSERT INTO psychiatrists (
			id, name, specialty, location, bio, email,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	psychiatrist.ID = uuid.New()
	psychiatrist.CreatedAt = time.Now()
	psychiatrist.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		psychiatrist.ID,
		psychiatrist.Name,
		psychiatrist.Specialty,
		psychiatrist.Location,
		psychiatrist.Bio,
		psychiatrist.Email,
		psychiatrist.CreatedAt,
		psychiatrist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create psychiatrist: %w", err)
	}
	return nil
}

func (r *psychiatristRepository) Get(ctx context.Context, id uuid.UUID) (*model.Psychiatrist, error) {
	query := `
		SELECT id, name, specialty, location, bio, email,
			   created_at, updated_at
		FROM psychiatrists
		WHERE id = $1
	`
	var psychiatrist model.Psychiatrist
	err := r.db.GetContext(ctx, &psychiatrist, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get psychiatrist: %w", err)
	}
	return &psychiatrist, nil
}

func (r *psychiatristRepository) GetByEmail(ctx context.Context, email string) (*model.Psychiatrist, error) {
	query := `
		SELECT id, name, specialty, location, bio, email,
			   created_at, updated_at
		FROM psychiatrists
		WHERE lower(email) = lower($1)
	`
	var psychiatrist model.Psychiatrist
	err := r.db.GetContext(ctx, &psychiatrist, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get psychiatrist by email: %w", err)
	}
	return &psychiatrist, nil
}

func (r *psychiatristRepository) Update(ctx context.Context, psychiatrist *model.Psychiatrist) error {
	query := `
		UPDATE psychiatrists
		SET name = $1, specialty = $2, location = $3, bio = $4, email = $5, updated_at = $6
		WHERE id = $7
	`
	psychiatrist.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		psychiatrist.Name,
		psychiatrist.Specialty,
		psychiatrist.Location,
		psychiatrist.Bio,
		psychiatrist.Email,
		psychiatrist.UpdatedAt,
		psychiatrist.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update psychiatrist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *psychiatristRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM psychiatrists
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete psychiatrist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *psychiatristRepository) List(ctx context.Context, filters *model.PsychiatristFilters) ([]*model.Psychiatrist, error) {
	query := `
		SELECT id, name, specialty, location, bio, email,
			   created_at, updated_at
		FROM psychiatrists
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Name != "" {
			query += fmt.Sprintf(" AND name ILIKE $%d", argCount)
			args = append(args, "%"+filters.Name+"%")
			argCount++
		}
		if filters.Location != "" {
			query += fmt.Sprintf(" AND location ILIKE $%d", argCount)
			args = append(args, "%"+filters.Location+"%")
			argCount++
		}
		if filters.Specialty != "" {
			query += fmt.Sprintf(" AND specialty ILIKE $%d", argCount)
			args = append(args, "%"+filters.Specialty+"%")
			argCount++
		}
	}

	query += " ORDER BY name ASC"

	var psychiatrists []*model.Psychiatrist
	err := r.db.SelectContext(ctx, &psychiatrists, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list psychiatrists: %w", err)
	}
	return psychiatrists, nil
}
