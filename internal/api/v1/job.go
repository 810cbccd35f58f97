package v1

import (
	"net/http"

	"github.com/adforge/adforge/internal/api/dto"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/service"
	"github.com/adforge/adforge/internal/types"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobService      service.JobService
	dispatchService service.DispatchService
	logger          *logger.Logger
}

func NewJobHandler(jobService service.JobService, dispatchService service.DispatchService, logger *logger.Logger) *JobHandler {
	return &JobHandler{
		jobService:      jobService,
		dispatchService: dispatchService,
		logger:          logger,
	}
}

// @Summary Create a content job
// @Description Create a draft content job in one of the caller's organizations
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateJobRequest true "Job"
// @Success 201 {object} dto.JobResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Router /jobs [post]
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.jobService.CreateJob(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a content job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	resp, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Launch a content job
// @Description Submit the job to its generation provider. The body is empty.
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} dto.LaunchJobResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /jobs/{id}/launch [post]
func (h *JobHandler) LaunchJob(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.dispatchService.Launch(ctx, c.Param("id"), types.GetUserID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Charge and launch a content job
// @Description Debit the organization, then launch the job. Credits are refunded when the provider fails.
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param request body dto.LaunchAndChargeRequest true "Charge"
// @Success 200 {object} dto.LaunchJobResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /jobs/{id}/launch-and-charge [post]
func (h *JobHandler) LaunchAndCharge(c *gin.Context) {
	var req dto.LaunchAndChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.dispatchService.LaunchAndCharge(ctx, c.Param("id"), types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
