package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psyconnect/psyconnect-api/internal/middleware"
	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/repository"
	appointmentsvc "github.com/psyconnect/psyconnect-api/internal/service/appointment"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
)

type fakeRequestRepo struct {
	requests map[uuid.UUID]*model.AppointmentRequest
}

func (r *fakeRequestRepo) Create(_ context.Context, request *model.AppointmentRequest) error {
	request.ID = uuid.New()
	r.requests[request.ID] = request
	return nil
}

func (r *fakeRequestRepo) Get(_ context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	request, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *request
	return &cp, nil
}

func (r *fakeRequestRepo) Update(_ context.Context, request *model.AppointmentRequest) error {
	r.requests[request.ID] = request
	return nil
}

func (r *fakeRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.RequestStatus) error {
	r.requests[id].Status = status
	return nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.requests, id)
	return nil
}

func (r *fakeRequestRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentRequest, error) {
	out := []*model.AppointmentRequest{}
	for _, request := range r.requests {
		if filters.PatientEmail != "" && !strings.EqualFold(request.PatientEmail, filters.PatientEmail) {
			continue
		}
		if filters.PsychiatristID != uuid.Nil && request.PsychiatristID != filters.PsychiatristID {
			continue
		}
		if filters.Status != "" && request.Status != filters.Status {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

type fakePsychRepo struct {
	psych *model.Psychiatrist
}

func (r *fakePsychRepo) Create(_ context.Context, _ *model.Psychiatrist) error { return nil }

func (r *fakePsychRepo) Get(_ context.Context, id uuid.UUID) (*model.Psychiatrist, error) {
	if r.psych != nil && r.psych.ID == id {
		return r.psych, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakePsychRepo) GetByEmail(_ context.Context, email string) (*model.Psychiatrist, error) {
	if r.psych != nil && strings.EqualFold(r.psych.Email, email) {
		return r.psych, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakePsychRepo) Update(_ context.Context, _ *model.Psychiatrist) error { return nil }
func (r *fakePsychRepo) Delete(_ context.Context, _ uuid.UUID) error           { return nil }
func (r *fakePsychRepo) List(_ context.Context, _ *model.PsychiatristFilters) ([]*model.Psychiatrist, error) {
	return nil, nil
}

type fakeOutboxRepo struct{}

func (fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error { return nil }
func (fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}
func (fakeOutboxRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.OutboxStatus, _ *string) error {
	return nil
}
func (fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// setClaims replaces the auth middleware in tests.
func setClaims(claims *model.TokenClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextClaims, claims)
		c.Next()
	}
}

func newTestRouter(claims *model.TokenClaims) (*gin.Engine, *fakeRequestRepo, *model.Psychiatrist) {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = model.RegisterValidations(v)
	}

	psych := &model.Psychiatrist{
		Base:  model.Base{ID: uuid.New()},
		Name:  "Dr. Imani Walker",
		Email: "imani@example.com",
	}
	requestRepo := &fakeRequestRepo{requests: make(map[uuid.UUID]*model.AppointmentRequest)}
	svc := appointmentsvc.NewService(requestRepo, &fakePsychRepo{psych: psych}, fakeOutboxRepo{}, logger.NewLogger(nil))
	h := NewHandler(svc)

	router := gin.New()
	public := router.Group("/api/v1")
	h.RegisterPublicRoutes(public)

	protected := router.Group("/api/v1")
	if claims != nil {
		protected.Use(setClaims(claims))
	}
	h.RegisterProtectedRoutes(protected)

	return router, requestRepo, psych
}

func createBody(psychID uuid.UUID) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"psychiatrist_id":            psychID,
		"patient_name":               "Jordan Lee",
		"patient_email":              "jordan@example.com",
		"preferred_appointment_type": "virtual",
		"preferred_times":            []string{"Weekday mornings"},
		"hoping_to_work_on":          []string{"Anxiety"},
		"spoken_before":              "no",
	})
	return body
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRequestEndpoint(t *testing.T) {
	router, repo, psych := newTestRouter(nil)

	w := doRequest(router, http.MethodPost, "/api/v1/appointments", createBody(psych.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Status string                    `json:"status"`
		Data   *model.AppointmentRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, model.RequestStatusPending, resp.Data.Status)
	assert.Len(t, repo.requests, 1)

	t.Run("validation failure", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/appointments", []byte(`{"patient_name":"x"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown psychiatrist", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/appointments", createBody(uuid.New()))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListRequestsByRole(t *testing.T) {
	patient := &model.TokenClaims{Email: "jordan@example.com", Role: model.RolePatient}

	router, _, psych := newTestRouter(patient)
	w := doRequest(router, http.MethodPost, "/api/v1/appointments", createBody(psych.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("patient sees own requests", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/appointments", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []*model.AppointmentRequest `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 1)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/appointments?status=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPatientEditAndCancelEndpoints(t *testing.T) {
	patient := &model.TokenClaims{Email: "jordan@example.com", Role: model.RolePatient}
	router, repo, psych := newTestRouter(patient)

	w := doRequest(router, http.MethodPost, "/api/v1/appointments", createBody(psych.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data *model.AppointmentRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID

	updateBody, _ := json.Marshal(map[string]interface{}{
		"patient_name":               "Jordan Lee",
		"patient_email":              "jordan@example.com",
		"preferred_appointment_type": "in-person",
		"spoken_before":              "yes",
	})
	w = doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%s", id), updateBody)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("edit locked once approved", func(t *testing.T) {
		repo.requests[id].Status = model.RequestStatusApproved
		w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%s", id), updateBody)
		assert.Equal(t, http.StatusConflict, w.Code)
		repo.requests[id].Status = model.RequestStatusPending
	})

	w = doRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/appointments/%s", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, repo.requests, "cancel removes the row")
}

func TestUpdateStatusEndpoint(t *testing.T) {
	psychClaims := &model.TokenClaims{Email: "imani@example.com", Role: model.RolePsychiatrist}
	router, repo, psych := newTestRouter(psychClaims)

	w := doRequest(router, http.MethodPost, "/api/v1/appointments", createBody(psych.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data *model.AppointmentRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID

	w = doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%s/status", id), []byte(`{"status":"approved"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.RequestStatusApproved, repo.requests[id].Status)

	t.Run("invalid status", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/appointments/%s/status", id), []byte(`{"status":"archived"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
