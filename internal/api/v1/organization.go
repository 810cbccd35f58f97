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

type OrganizationHandler struct {
	orgService       service.OrganizationService
	ownershipService service.OwnershipService
	logger           *logger.Logger
}

func NewOrganizationHandler(orgService service.OrganizationService, ownershipService service.OwnershipService, logger *logger.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:       orgService,
		ownershipService: ownershipService,
		logger:           logger,
	}
}

// @Summary Create an organization and join it
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateOrganizationRequest true "Organization"
// @Success 201 {object} dto.OrganizationResponse
// @Router /orgs [post]
func (h *OrganizationHandler) CreateAndJoin(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.orgService.CreateAndJoin(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get the caller's organization
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.OrganizationResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /orgs/me [get]
func (h *OrganizationHandler) GetMyOrg(c *gin.Context) {
	resp, err := h.orgService.GetMyOrg(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the organization owner
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} dto.OwnerResponse
// @Router /orgs/{id}/owner [get]
func (h *OrganizationHandler) GetOwner(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := c.Param("id")

	if _, err := h.orgService.RequireMember(ctx, orgID); err != nil {
		c.Error(err)
		return
	}

	ownerID, err := h.ownershipService.GetOwner(ctx, orgID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnerResponse{
		OK:      true,
		OrgID:   orgID,
		OwnerID: ownerID,
	})
}

// @Summary Claim ownership of an organization
// @Description Succeeds only while the organization has no owner
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} dto.OwnerResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /orgs/{id}/owner/claim [post]
func (h *OrganizationHandler) ClaimOwnership(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := c.Param("id")
	userID := types.GetUserID(ctx)

	if err := h.ownershipService.Claim(ctx, orgID, userID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnerResponse{
		OK:      true,
		OrgID:   orgID,
		OwnerID: &userID,
	})
}
