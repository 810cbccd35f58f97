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

type CreditsHandler struct {
	ledgerService service.LedgerService
	orgService    service.OrganizationService
	logger        *logger.Logger
}

func NewCreditsHandler(ledgerService service.LedgerService, orgService service.OrganizationService, logger *logger.Logger) *CreditsHandler {
	return &CreditsHandler{
		ledgerService: ledgerService,
		orgService:    orgService,
		logger:        logger,
	}
}

// @Summary Consume credits
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Param request body dto.DebitRequest true "Debit"
// @Success 200 {object} dto.BalanceResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Router /orgs/{id}/credits/consume [post]
func (h *CreditsHandler) Consume(c *gin.Context) {
	var req dto.DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	req.OrgID = c.Param("id")
	if _, err := h.orgService.RequireMember(ctx, req.OrgID); err != nil {
		c.Error(err)
		return
	}

	balance, err := h.ledgerService.Debit(ctx, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		OK:         true,
		OrgID:      req.OrgID,
		NewBalance: balance,
	})
}

// @Summary Add credits
// @Description Owner only top-up
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Param request body dto.TopUpRequest true "Top-up"
// @Success 200 {object} dto.BalanceResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Router /orgs/{id}/credits/add [post]
func (h *CreditsHandler) Add(c *gin.Context) {
	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	orgID := c.Param("id")
	balance, err := h.ledgerService.TopUp(c.Request.Context(), orgID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		OK:         true,
		OrgID:      orgID,
		NewBalance: balance,
	})
}

// @Summary Get the credit balance
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} dto.CreditBalanceResponse
// @Router /orgs/{id}/credits/balance [get]
func (h *CreditsHandler) Balance(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := c.Param("id")

	if _, err := h.orgService.RequireMember(ctx, orgID); err != nil {
		c.Error(err)
		return
	}

	balance, err := h.ledgerService.Balance(ctx, orgID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.CreditBalanceResponse{
		OK:      true,
		OrgID:   orgID,
		Balance: balance,
	})
}

// @Summary List ledger entries
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.ListLedgerEntriesResponse
// @Router /orgs/{id}/credits/entries [get]
func (h *CreditsHandler) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()
	filter := types.NewLedgerEntryFilter(c.Param("id"))
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	if _, err := h.orgService.RequireMember(ctx, filter.OrgID); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.ledgerService.ListEntries(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
