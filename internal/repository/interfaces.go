package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/model"
)

// ErrNotFound is returned by repositories when no row matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, such as two signups racing on the same email.
var ErrDuplicate = errors.New("duplicate record")

type PsychiatristRepository interface {
	Create(ctx context.Context, psychiatrist *model.Psychiatrist) error
	Get(ctx context.Context, id uuid.UUID) (*model.Psychiatrist, error)
	GetByEmail(ctx context.Context, email string) (*model.Psychiatrist, error)
	Update(ctx context.Context, psychiatrist *model.Psychiatrist) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.PsychiatristFilters) ([]*model.Psychiatrist, error)
}

type AppointmentRequestRepository interface {
	Create(ctx context.Context, request *model.AppointmentRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error)
	Update(ctx context.Context, request *model.AppointmentRequest) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentRequest, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
