package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/handler"
	"github.com/psyconnect/psyconnect-api/internal/middleware"
	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/service/appointment"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes request submission, which needs no account.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/appointments", h.CreateRequest)
}

// RegisterProtectedRoutes exposes the authenticated request surface; mount
// behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListRequests)
		appointments.GET("/:id", h.GetRequest)
		appointments.PUT("/:id", h.UpdateRequest)
		appointments.DELETE("/:id", h.CancelRequest)
		appointments.PUT("/:id/status", h.UpdateStatus)
	}
}

// RegisterAdminRoutes exposes the full request listing.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.ListAllRequests)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(request))
}

// ListRequests dispatches on the caller's role: patients see their own
// submissions, psychiatrists their inbox.
func (h *Handler) ListRequests(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	status := model.RequestStatus(c.Query("status"))
	if status != "" && !model.ValidRequestStatus(status) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid status filter"))
		return
	}

	var (
		requests []*model.AppointmentRequest
		err      error
	)
	switch claims.Role {
	case model.RolePsychiatrist:
		requests, err = h.service.ListForPsychiatrist(c.Request.Context(), claims, status)
	case model.RoleAdmin:
		requests, err = h.service.ListAll(c.Request.Context(), status)
	default:
		requests, err = h.service.ListForPatient(c.Request.Context(), claims, status)
	}
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) ListAllRequests(c *gin.Context) {
	status := model.RequestStatus(c.Query("status"))
	if status != "" && !model.ValidRequestStatus(status) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid status filter"))
		return
	}

	requests, err := h.service.ListAll(c.Request.Context(), status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) GetRequest(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	request, err := h.service.GetRequestFor(c.Request.Context(), claims, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) UpdateRequest(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	request, err := h.service.UpdateRequest(c.Request.Context(), claims, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}

func (h *Handler) CancelRequest(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	if err := h.service.CancelRequest(c.Request.Context(), claims, id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request ID"))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	request, err := h.service.UpdateStatus(c.Request.Context(), claims, id, req.Status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(request))
}
