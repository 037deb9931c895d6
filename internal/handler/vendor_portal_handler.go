package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/response"
)

type vendorPortalService interface {
	Snapshot(ctx context.Context, token string) (*dto.QuoteRequestSnapshot, error)
	SubmitQuotation(ctx context.Context, req dto.SubmitQuotationRequest) (*models.Quotation, error)
}

// VendorPortalHandler exposes the public, token-authenticated vendor
// endpoints. These routes sit outside the JWT middleware on purpose:
// the invite token is the only credential.
type VendorPortalHandler struct {
	service vendorPortalService
}

// NewVendorPortalHandler builds a new handler.
func NewVendorPortalHandler(service vendorPortalService) *VendorPortalHandler {
	return &VendorPortalHandler{service: service}
}

// Snapshot godoc
// @Summary View the RFQ an invite token grants access to
// @Tags VendorPortal
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} response.Envelope
// @Router /vendor-portal/{token} [get]
func (h *VendorPortalHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.service.Snapshot(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// SubmitQuotation godoc
// @Summary Submit a quotation against an invite token
// @Tags VendorPortal
// @Accept json
// @Produce json
// @Param payload body dto.SubmitQuotationRequest true "Quotation payload"
// @Success 201 {object} response.Envelope
// @Router /vendor-portal/quotations [post]
func (h *VendorPortalHandler) SubmitQuotation(c *gin.Context) {
	var req dto.SubmitQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quotation payload"))
		return
	}
	quotation, err := h.service.SubmitQuotation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quotation)
}
