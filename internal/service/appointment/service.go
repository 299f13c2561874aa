package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/listfield"
	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/repository"
	apperrors "github.com/psyconnect/psyconnect-api/pkg/errors"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
)

// Service owns the appointment request lifecycle: patient submission and
// self-service (pending-only), psychiatrist status authority, and the
// sentinel coupling between hoping_to_work_on and other_work_on.
type Service struct {
	repo       repository.AppointmentRequestRepository
	psychRepo  repository.PsychiatristRepository
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
}

func NewService(repo repository.AppointmentRequestRepository, psychRepo repository.PsychiatristRepository,
	outboxRepo repository.OutboxRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		psychRepo:  psychRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

func (s *Service) CreateRequest(ctx context.Context, req *model.CreateAppointmentRequest) (*model.AppointmentRequest, error) {
	psych, err := s.psychRepo.Get(ctx, req.PsychiatristID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("psychiatrist", err)
		}
		return nil, fmt.Errorf("failed to resolve psychiatrist: %w", err)
	}

	hoping, other := syncOtherWorkOn(listfield.Normalize(req.HopingToWorkOn), req.OtherWorkOn)

	request := &model.AppointmentRequest{
		PsychiatristID:           psych.ID,
		PatientName:              strings.TrimSpace(req.PatientName),
		PatientEmail:             strings.TrimSpace(req.PatientEmail),
		PreferredAppointmentType: req.PreferredAppointmentType,
		PreferredTimes:           listfield.List(listfield.Normalize(req.PreferredTimes)),
		WhatBringsYou:            req.WhatBringsYou,
		HopingToWorkOn:           hoping,
		OtherWorkOn:              other,
		SpokenBefore:             req.SpokenBefore,
		AnythingElse:             req.AnythingElse,
		Status:                   model.RequestStatusPending,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create appointment request: %w", err)
	}

	s.emitEvent(ctx, model.EventRequestCreated, request, psych.Email, "")

	return request, nil
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	request, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment request", err)
		}
		return nil, fmt.Errorf("failed to get appointment request: %w", err)
	}
	return request, nil
}

// GetRequestFor returns a single request after checking the caller may see
// it: admins see everything, patients their own submissions, psychiatrists
// the requests addressed to them.
func (s *Service) GetRequestFor(ctx context.Context, claims *model.TokenClaims, id uuid.UUID) (*model.AppointmentRequest, error) {
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	switch claims.Role {
	case model.RoleAdmin:
		return request, nil
	case model.RolePatient:
		if strings.EqualFold(request.PatientEmail, claims.Email) {
			return request, nil
		}
	case model.RolePsychiatrist:
		psych, err := s.psychRepo.GetByEmail(ctx, claims.Email)
		if err == nil && psych.ID == request.PsychiatristID {
			return request, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve psychiatrist: %w", err)
		}
	}
	return nil, apperrors.Forbidden("you do not have access to this appointment request", nil)
}

// ListForPatient returns the requests owned by the calling patient,
// resolved by email match.
func (s *Service) ListForPatient(ctx context.Context, claims *model.TokenClaims, status model.RequestStatus) ([]*model.AppointmentRequest, error) {
	return s.list(ctx, &model.AppointmentFilters{
		PatientEmail: claims.Email,
		Status:       status,
	})
}

// ListForPsychiatrist returns the requests addressed to the calling
// psychiatrist. An authenticated account with no directory entry sees an
// empty list rather than an error.
func (s *Service) ListForPsychiatrist(ctx context.Context, claims *model.TokenClaims, status model.RequestStatus) ([]*model.AppointmentRequest, error) {
	psych, err := s.psychRepo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []*model.AppointmentRequest{}, nil
		}
		return nil, fmt.Errorf("failed to resolve psychiatrist: %w", err)
	}

	return s.list(ctx, &model.AppointmentFilters{
		PsychiatristID: psych.ID,
		Status:         status,
	})
}

// ListAll returns every request; admin dashboard view.
func (s *Service) ListAll(ctx context.Context, status model.RequestStatus) ([]*model.AppointmentRequest, error) {
	return s.list(ctx, &model.AppointmentFilters{Status: status})
}

func (s *Service) list(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentRequest, error) {
	requests, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment requests: %w", err)
	}
	return requests, nil
}

// UpdateRequest is a patient-initiated edit: full replacement of the
// editable fields, permitted only while the request is pending. Guards run
// before any mutation is attempted.
func (s *Service) UpdateRequest(ctx context.Context, claims *model.TokenClaims, id uuid.UUID, upd *model.UpdateAppointmentRequest) (*model.AppointmentRequest, error) {
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(request.PatientEmail, claims.Email) {
		return nil, apperrors.Forbidden("you do not own this appointment request", nil)
	}
	if !model.CanPatientModify(request.Status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("a %s request can no longer be edited", request.Status), nil)
	}

	hoping, other := syncOtherWorkOn(listfield.Normalize(upd.HopingToWorkOn), upd.OtherWorkOn)

	request.PatientName = strings.TrimSpace(upd.PatientName)
	request.PatientEmail = strings.TrimSpace(upd.PatientEmail)
	request.PreferredAppointmentType = upd.PreferredAppointmentType
	request.PreferredTimes = listfield.List(listfield.Normalize(upd.PreferredTimes))
	request.WhatBringsYou = upd.WhatBringsYou
	request.HopingToWorkOn = hoping
	request.OtherWorkOn = other
	request.SpokenBefore = upd.SpokenBefore
	request.AnythingElse = upd.AnythingElse

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update appointment request: %w", err)
	}

	s.emitEvent(ctx, model.EventRequestUpdated, request, "", "")

	return request, nil
}

// CancelRequest is a patient-initiated cancel, permitted only while
// pending. Cancellation is a hard delete of the row; other status changes
// are soft field mutations.
func (s *Service) CancelRequest(ctx context.Context, claims *model.TokenClaims, id uuid.UUID) error {
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}

	if !strings.EqualFold(request.PatientEmail, claims.Email) {
		return apperrors.Forbidden("you do not own this appointment request", nil)
	}
	if !model.CanPatientModify(request.Status) {
		return apperrors.Conflict(
			fmt.Sprintf("a %s request can no longer be cancelled", request.Status), nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel appointment request: %w", err)
	}

	s.emitEvent(ctx, model.EventRequestCancelled, request, "", "")

	return nil
}

// UpdateStatus is a psychiatrist-initiated status change. The owning
// psychiatrist may move the request between any two valid states; admins
// may do the same from the admin dashboard. Ownership is resolved by email
// match against the directory.
func (s *Service) UpdateStatus(ctx context.Context, claims *model.TokenClaims, id uuid.UUID, status model.RequestStatus) (*model.AppointmentRequest, error) {
	if !model.ValidRequestStatus(status) {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid status %q", status), nil)
	}

	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if claims.Role != model.RoleAdmin {
		psych, err := s.psychRepo.GetByEmail(ctx, claims.Email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.Forbidden("no psychiatrist profile for this account", err)
			}
			return nil, fmt.Errorf("failed to resolve psychiatrist: %w", err)
		}
		if psych.ID != request.PsychiatristID {
			return nil, apperrors.Forbidden("this request belongs to another psychiatrist", nil)
		}
	}

	if !model.CanTransition(request.Status, status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot move request from %s to %s", request.Status, status), nil)
	}

	previous := request.Status
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	request.Status = status

	s.emitEvent(ctx, model.EventStatusChanged, request, "", previous)

	return request, nil
}

// syncOtherWorkOn re-derives the sentinel coupling: other_work_on is
// populated if and only if the "Other:" marker is present in the list.
// The free-text field drives the marker, matching the edit form.
func syncOtherWorkOn(hoping []string, other string) (listfield.List, string) {
	list := listfield.List(hoping)
	other = strings.TrimSpace(other)

	if other == "" {
		return list.Without(model.OtherMarker), ""
	}
	if !list.Contains(model.OtherMarker) {
		list = append(list, model.OtherMarker)
	}
	return list, other
}

// emitEvent records an outbox event for the notification worker. Event
// write failures are logged, never surfaced: the mutation already
// committed and notification delivery is best-effort.
func (s *Service) emitEvent(ctx context.Context, eventType string, request *model.AppointmentRequest, psychiatristEmail string, previous model.RequestStatus) {
	payload, err := json.Marshal(&model.RequestEventPayload{
		RequestID:         request.ID,
		PsychiatristID:    request.PsychiatristID,
		PsychiatristEmail: psychiatristEmail,
		PatientName:       request.PatientName,
		PatientEmail:      request.PatientEmail,
		Status:            request.Status,
		PreviousStatus:    previous,
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal outbox payload", "event_type", eventType)
		return
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to record outbox event",
			"event_type", eventType, "request_id", request.ID.String())
	}
}
