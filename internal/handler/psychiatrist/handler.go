package psychiatrist

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/handler"
	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/service/directory"
)

type Handler struct {
	service *directory.Service
}

func NewHandler(service *directory.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes the read-only directory.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	psychiatrists := r.Group("/psychiatrists")
	{
		psychiatrists.GET("", h.ListPsychiatrists)
		psychiatrists.GET("/:id", h.GetPsychiatrist)
	}
}

// RegisterAdminRoutes exposes directory CRUD; mount behind the admin role.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	psychiatrists := r.Group("/psychiatrists")
	{
		psychiatrists.POST("", h.CreatePsychiatrist)
		psychiatrists.PUT("/:id", h.UpdatePsychiatrist)
		psychiatrists.DELETE("/:id", h.DeletePsychiatrist)
	}
}

func (h *Handler) ListPsychiatrists(c *gin.Context) {
	var filters model.PsychiatristFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	psychiatrists, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(psychiatrists))
}

func (h *Handler) GetPsychiatrist(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid psychiatrist ID"))
		return
	}

	psychiatrist, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(psychiatrist))
}

func (h *Handler) CreatePsychiatrist(c *gin.Context) {
	var req model.CreatePsychiatristRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	psychiatrist, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(psychiatrist))
}

func (h *Handler) UpdatePsychiatrist(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid psychiatrist ID"))
		return
	}

	var req model.UpdatePsychiatristRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	psychiatrist, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(psychiatrist))
}

func (h *Handler) DeletePsychiatrist(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid psychiatrist ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
