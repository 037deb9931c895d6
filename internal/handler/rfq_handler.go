package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/internal/service"
	"github.com/societyhq/procurement-api/pkg/response"
)

type rfqService interface {
	Get(ctx context.Context, rfqID string, actor *models.JWTClaims) (*models.RFQ, []models.RFQVendorInvite, error)
	Quotations(ctx context.Context, rfqID string, actor *models.JWTClaims) ([]models.Quotation, error)
	ComparativeStatement(ctx context.Context, rfqID string, format service.StatementFormat, actor *models.JWTClaims) ([]byte, string, error)
}

// RFQHandler exposes the committee-facing RFQ read endpoints.
type RFQHandler struct {
	service rfqService
}

// NewRFQHandler builds a new handler.
func NewRFQHandler(service rfqService) *RFQHandler {
	return &RFQHandler{service: service}
}

// Get godoc
// @Summary Get an RFQ with its vendor invites
// @Tags RFQs
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id} [get]
func (h *RFQHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	rfq, invites, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"rfq": rfq, "invites": invites}, nil)
}

// Quotations godoc
// @Summary List an RFQ's quotations ordered by rank
// @Tags RFQs
// @Produce json
// @Param id path string true "RFQ ID"
// @Success 200 {object} response.Envelope
// @Router /rfqs/{id}/quotations [get]
func (h *RFQHandler) Quotations(c *gin.Context) {
	claims := claimsFromContext(c)
	quotations, err := h.service.Quotations(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quotations, nil)
}

// ComparativeStatement godoc
// @Summary Download the comparative statement as CSV or PDF
// @Tags RFQs
// @Produce octet-stream
// @Param id path string true "RFQ ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /rfqs/{id}/comparative-statement [get]
func (h *RFQHandler) ComparativeStatement(c *gin.Context) {
	claims := claimsFromContext(c)
	format := service.StatementFormat(c.DefaultQuery("format", "csv"))
	payload, contentType, err := h.service.ComparativeStatement(c.Request.Context(), c.Param("id"), format, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=comparative-statement.%s", ext))
	c.Data(http.StatusOK, contentType, payload)
}
