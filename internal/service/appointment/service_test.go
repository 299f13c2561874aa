package appointment

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/repository"
	apperrors "github.com/psyconnect/psyconnect-api/pkg/errors"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
)

type fakeRequestRepo struct {
	requests map[uuid.UUID]*model.AppointmentRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*model.AppointmentRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, request *model.AppointmentRequest) error {
	request.ID = uuid.New()
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	cp := *request
	r.requests[request.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Get(_ context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) Update(_ context.Context, request *model.AppointmentRequest) error {
	if _, ok := r.requests[request.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *request
	r.requests[request.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.RequestStatus) error {
	req, ok := r.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.Status = status
	return nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *fakeRequestRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentRequest, error) {
	out := []*model.AppointmentRequest{}
	for _, req := range r.requests {
		if filters.PsychiatristID != uuid.Nil && req.PsychiatristID != filters.PsychiatristID {
			continue
		}
		if filters.PatientEmail != "" && !strings.EqualFold(req.PatientEmail, filters.PatientEmail) {
			continue
		}
		if filters.Status != "" && req.Status != filters.Status {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

type fakePsychRepo struct {
	psychiatrists map[uuid.UUID]*model.Psychiatrist
}

func newFakePsychRepo(psychs ...*model.Psychiatrist) *fakePsychRepo {
	r := &fakePsychRepo{psychiatrists: make(map[uuid.UUID]*model.Psychiatrist)}
	for _, p := range psychs {
		r.psychiatrists[p.ID] = p
	}
	return r
}

func (r *fakePsychRepo) Create(_ context.Context, p *model.Psychiatrist) error {
	p.ID = uuid.New()
	r.psychiatrists[p.ID] = p
	return nil
}

func (r *fakePsychRepo) Get(_ context.Context, id uuid.UUID) (*model.Psychiatrist, error) {
	p, ok := r.psychiatrists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakePsychRepo) GetByEmail(_ context.Context, email string) (*model.Psychiatrist, error) {
	for _, p := range r.psychiatrists {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePsychRepo) Update(_ context.Context, p *model.Psychiatrist) error {
	r.psychiatrists[p.ID] = p
	return nil
}

func (r *fakePsychRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.psychiatrists, id)
	return nil
}

func (r *fakePsychRepo) List(_ context.Context, _ *model.PsychiatristFilters) ([]*model.Psychiatrist, error) {
	out := []*model.Psychiatrist{}
	for _, p := range r.psychiatrists {
		out = append(out, p)
	}
	return out, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	event.ID = uuid.New()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) lastEvent(t *testing.T) (*model.OutboxEvent, *model.RequestEventPayload) {
	t.Helper()
	require.NotEmpty(t, r.events)
	event := r.events[len(r.events)-1]
	var payload model.RequestEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	return event, &payload
}

func newTestService(psychs ...*model.Psychiatrist) (*Service, *fakeRequestRepo, *fakeOutboxRepo) {
	requestRepo := newFakeRequestRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc := NewService(requestRepo, newFakePsychRepo(psychs...), outboxRepo, logger.NewLogger(nil))
	return svc, requestRepo, outboxRepo
}

func testPsychiatrist() *model.Psychiatrist {
	return &model.Psychiatrist{
		Base:      model.Base{ID: uuid.New()},
		Name:      "Dr. Imani Walker",
		Specialty: "Anxiety",
		Location:  "Oakland, CA",
		Email:     "imani@example.com",
	}
}

func createReq(psychID uuid.UUID) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PsychiatristID:           psychID,
		PatientName:              "Jordan Lee",
		PatientEmail:             "jordan@example.com",
		PreferredAppointmentType: "virtual",
		PreferredTimes:           []string{"Weekday mornings"},
		HopingToWorkOn:           []string{"Anxiety"},
		SpokenBefore:             "no",
	}
}

func patientClaims(email string) *model.TokenClaims {
	return &model.TokenClaims{UserID: uuid.New(), Email: email, Role: model.RolePatient}
}

func TestCreateRequest(t *testing.T) {
	psych := testPsychiatrist()
	svc, _, outbox := newTestService(psych)

	created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, created.Status)
	assert.Equal(t, psych.ID, created.PsychiatristID)
	assert.NotEqual(t, uuid.Nil, created.ID)

	event, payload := outbox.lastEvent(t)
	assert.Equal(t, model.EventRequestCreated, event.EventType)
	assert.Equal(t, created.ID, payload.RequestID)
	assert.Equal(t, psych.Email, payload.PsychiatristEmail)
}

func TestCreateRequestUnknownPsychiatrist(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateRequest(context.Background(), createReq(uuid.New()))
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestCreateRequestSentinelSync(t *testing.T) {
	psych := testPsychiatrist()

	t.Run("free text without marker appends it", func(t *testing.T) {
		svc, _, _ := newTestService(psych)
		req := createReq(psych.ID)
		req.HopingToWorkOn = []string{"Anxiety"}
		req.OtherWorkOn = "sleep trouble"

		created, err := svc.CreateRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"Anxiety", model.OtherMarker}, []string(created.HopingToWorkOn))
		assert.Equal(t, "sleep trouble", created.OtherWorkOn)
	})

	t.Run("marker without free text is stripped", func(t *testing.T) {
		svc, _, _ := newTestService(psych)
		req := createReq(psych.ID)
		req.HopingToWorkOn = []string{"Anxiety", model.OtherMarker}
		req.OtherWorkOn = "   "

		created, err := svc.CreateRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"Anxiety"}, []string(created.HopingToWorkOn))
		assert.Empty(t, created.OtherWorkOn)
	})

	t.Run("marker already present is not duplicated", func(t *testing.T) {
		svc, _, _ := newTestService(psych)
		req := createReq(psych.ID)
		req.HopingToWorkOn = []string{model.OtherMarker}
		req.OtherWorkOn = "grief"

		created, err := svc.CreateRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{model.OtherMarker}, []string(created.HopingToWorkOn))
	})
}

func TestUpdateRequestSentinelSync(t *testing.T) {
	psych := testPsychiatrist()
	svc, repo, _ := newTestService(psych)

	req := createReq(psych.ID)
	req.HopingToWorkOn = []string{"Anxiety", model.OtherMarker}
	req.OtherWorkOn = "sleep trouble"

	created, err := svc.CreateRequest(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "sleep trouble", created.OtherWorkOn)

	// Unchecking Other on edit clears both the marker and the free text.
	upd := &model.UpdateAppointmentRequest{
		PatientName:              req.PatientName,
		PatientEmail:             req.PatientEmail,
		PreferredAppointmentType: req.PreferredAppointmentType,
		PreferredTimes:           req.PreferredTimes,
		HopingToWorkOn:           []string{"Anxiety", model.OtherMarker},
		OtherWorkOn:              "",
		SpokenBefore:             req.SpokenBefore,
	}

	updated, err := svc.UpdateRequest(context.Background(), patientClaims(req.PatientEmail), created.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anxiety"}, []string(updated.HopingToWorkOn))
	assert.Empty(t, updated.OtherWorkOn)

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anxiety"}, []string(stored.HopingToWorkOn))
	assert.Empty(t, stored.OtherWorkOn)
}

func TestUpdateRequest(t *testing.T) {
	psych := testPsychiatrist()
	svc, _, outbox := newTestService(psych)

	created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)

	upd := &model.UpdateAppointmentRequest{
		PatientName:              "Jordan Lee",
		PatientEmail:             "jordan@example.com",
		PreferredAppointmentType: "in-person",
		PreferredTimes:           []string{"Weekends"},
		HopingToWorkOn:           []string{"Depression"},
		SpokenBefore:             "yes",
	}

	updated, err := svc.UpdateRequest(context.Background(), patientClaims("Jordan@Example.com"), created.ID, upd)
	require.NoError(t, err)

	assert.Equal(t, "in-person", updated.PreferredAppointmentType)
	assert.Equal(t, []string{"Weekends"}, []string(updated.PreferredTimes))
	assert.Equal(t, model.RequestStatusPending, updated.Status)

	event, _ := outbox.lastEvent(t)
	assert.Equal(t, model.EventRequestUpdated, event.EventType)
}

func TestUpdateRequestGuards(t *testing.T) {
	psych := testPsychiatrist()

	upd := &model.UpdateAppointmentRequest{
		PatientName:              "Jordan Lee",
		PatientEmail:             "jordan@example.com",
		PreferredAppointmentType: "virtual",
		SpokenBefore:             "no",
	}

	t.Run("other patient is forbidden", func(t *testing.T) {
		svc, _, _ := newTestService(psych)
		created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
		require.NoError(t, err)

		_, err = svc.UpdateRequest(context.Background(), patientClaims("someone.else@example.com"), created.ID, upd)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	})

	t.Run("non-pending request is locked", func(t *testing.T) {
		svc, repo, _ := newTestService(psych)
		created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(context.Background(), created.ID, model.RequestStatusApproved))

		_, err = svc.UpdateRequest(context.Background(), patientClaims("jordan@example.com"), created.ID, upd)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrConflict, appErr.Code)

		// Guard fired before any write.
		stored, err := repo.Get(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "virtual", stored.PreferredAppointmentType)
	})
}

func TestCancelRequest(t *testing.T) {
	psych := testPsychiatrist()
	svc, repo, outbox := newTestService(psych)

	created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)

	require.NoError(t, svc.CancelRequest(context.Background(), patientClaims("jordan@example.com"), created.ID))

	// Cancellation removes the row entirely.
	_, err = repo.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	event, _ := outbox.lastEvent(t)
	assert.Equal(t, model.EventRequestCancelled, event.EventType)
}

func TestCancelRequestNonPending(t *testing.T) {
	psych := testPsychiatrist()
	svc, repo, _ := newTestService(psych)

	created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), created.ID, model.RequestStatusDeclined))

	err = svc.CancelRequest(context.Background(), patientClaims("jordan@example.com"), created.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)

	_, err = repo.Get(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestUpdateStatus(t *testing.T) {
	psych := testPsychiatrist()
	svc, _, outbox := newTestService(psych)

	created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)

	claims := &model.TokenClaims{UserID: uuid.New(), Email: psych.Email, Role: model.RolePsychiatrist}

	updated, err := svc.UpdateStatus(context.Background(), claims, created.ID, model.RequestStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, updated.Status)

	event, payload := outbox.lastEvent(t)
	assert.Equal(t, model.EventStatusChanged, event.EventType)
	assert.Equal(t, model.RequestStatusPending, payload.PreviousStatus)
	assert.Equal(t, model.RequestStatusApproved, payload.Status)

	// Reverting to pending is allowed.
	updated, err = svc.UpdateStatus(context.Background(), claims, created.ID, model.RequestStatusPending)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, updated.Status)
}

func TestUpdateStatusGuards(t *testing.T) {
	psych := testPsychiatrist()
	other := testPsychiatrist()
	other.Email = "someone.else@example.com"

	t.Run("invalid status rejected", func(t *testing.T) {
		svc, _, _ := newTestService(psych)
		created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
		require.NoError(t, err)

		claims := &model.TokenClaims{Email: psych.Email, Role: model.RolePsychiatrist}
		_, err = svc.UpdateStatus(context.Background(), claims, created.ID, "archived")
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	})

	t.Run("another psychiatrist is forbidden", func(t *testing.T) {
		svc, _, _ := newTestService(psych, other)
		created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
		require.NoError(t, err)

		claims := &model.TokenClaims{Email: other.Email, Role: model.RolePsychiatrist}
		_, err = svc.UpdateStatus(context.Background(), claims, created.ID, model.RequestStatusApproved)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		svc, _, _ := newTestService(psych)
		created, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
		require.NoError(t, err)

		claims := &model.TokenClaims{Email: "admin@example.com", Role: model.RoleAdmin}
		updated, err := svc.UpdateStatus(context.Background(), claims, created.ID, model.RequestStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusCompleted, updated.Status)
	})
}

func TestListForPatient(t *testing.T) {
	psych := testPsychiatrist()
	svc, _, _ := newTestService(psych)

	_, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)

	otherReq := createReq(psych.ID)
	otherReq.PatientEmail = "someone.else@example.com"
	_, err = svc.CreateRequest(context.Background(), otherReq)
	require.NoError(t, err)

	requests, err := svc.ListForPatient(context.Background(), patientClaims("jordan@example.com"), "")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "jordan@example.com", requests[0].PatientEmail)
}

func TestListForPsychiatrist(t *testing.T) {
	psych := testPsychiatrist()
	svc, _, _ := newTestService(psych)

	_, err := svc.CreateRequest(context.Background(), createReq(psych.ID))
	require.NoError(t, err)

	claims := &model.TokenClaims{Email: psych.Email, Role: model.RolePsychiatrist}
	requests, err := svc.ListForPsychiatrist(context.Background(), claims, "")
	require.NoError(t, err)
	assert.Len(t, requests, 1)

	t.Run("no directory entry yields empty list", func(t *testing.T) {
		orphan := &model.TokenClaims{Email: "nobody@example.com", Role: model.RolePsychiatrist}
		requests, err := svc.ListForPsychiatrist(context.Background(), orphan, "")
		require.NoError(t, err)
		assert.Empty(t, requests)
	})
}
