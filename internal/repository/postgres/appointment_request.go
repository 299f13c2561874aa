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

type appointmentRequestRepository struct {
	BaseRepository
}

func NewAppointmentRequestRepository(base BaseRepository) repository.AppointmentRequestRepository {
	return &appointmentRequestRepository{base}
}

func (r *appointmentRequestRepository) Create(ctx context.Context, request *model.AppointmentRequest) error {
	query := `
		INSERT INTO appointment_requests (
			id, psychiatrist_id, patient_name, patient_email,
			preferred_appointment_type, preferred_times, what_brings_you,
			hoping_to_work_on, other_work_on, spoken_before, anything_else,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	request.ID = uuid.New()
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.PsychiatristID,
		request.PatientName,
		request.PatientEmail,
		request.PreferredAppointmentType,
		request.PreferredTimes,
		request.WhatBringsYou,
		request.HopingToWorkOn,
		request.OtherWorkOn,
		request.SpokenBefore,
		request.AnythingElse,
		request.Status,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment request: %w", err)
	}
	return nil
}

func (r *appointmentRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	query := `
		SELECT id, psychiatrist_id, patient_name, patient_email,
			   preferred_appointment_type, preferred_times, what_brings_you,
			   hoping_to_work_on, other_work_on, spoken_before, anything_else,
			   status, created_at, updated_at
		FROM appointment_requests
		WHERE id = $1
	`
	var request model.AppointmentRequest
	err := r.db.GetContext(ctx, &request, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment request: %w", err)
	}
	return &request, nil
}

func (r *appointmentRequestRepository) Update(ctx context.Context, request *model.AppointmentRequest) error {
	query := `
		UPDATE appointment_requests
		SET patient_name = $1, patient_email = $2,
			preferred_appointment_type = $3, preferred_times = $4,
			what_brings_you = $5, hoping_to_work_on = $6, other_work_on = $7,
			spoken_before = $8, anything_else = $9, updated_at = $10
		WHERE id = $11
	`
	request.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		request.PatientName,
		request.PatientEmail,
		request.PreferredAppointmentType,
		request.PreferredTimes,
		request.WhatBringsYou,
		request.HopingToWorkOn,
		request.OtherWorkOn,
		request.SpokenBefore,
		request.AnythingElse,
		request.UpdatedAt,
		request.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment request: %w", err)
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

func (r *appointmentRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error {
	query := `
		UPDATE appointment_requests
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
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

func (r *appointmentRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM appointment_requests
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment request: %w", err)
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

func (r *appointmentRequestRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentRequest, error) {
	query := `
		SELECT id, psychiatrist_id, patient_name, patient_email,
			   preferred_appointment_type, preferred_times, what_brings_you,
			   hoping_to_work_on, other_work_on, spoken_before, anything_else,
			   status, created_at, updated_at
		FROM appointment_requests
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.PsychiatristID != uuid.Nil {
			query += fmt.Sprintf(" AND psychiatrist_id = $%d", argCount)
			args = append(args, filters.PsychiatristID)
			argCount++
		}
		if filters.PatientEmail != "" {
			query += fmt.Sprintf(" AND lower(patient_email) = lower($%d)", argCount)
			args = append(args, filters.PatientEmail)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
	}

	query += " ORDER BY created_at DESC"

	var requests []*model.AppointmentRequest
	err := r.db.SelectContext(ctx, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment requests: %w", err)
	}
	return requests, nil
}
