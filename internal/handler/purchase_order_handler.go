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

type poService interface {
	CreateFromRFQ(ctx context.Context, req dto.CreatePurchaseOrderRequest, actor *models.JWTClaims) (*models.PurchaseOrder, error)
	Get(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error)
	Approve(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error)
	Issue(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error)
	MarkDelivered(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error)
	Document(ctx context.Context, poID string, actor *models.JWTClaims) ([]byte, error)
}

// PurchaseOrderHandler exposes purchase order creation and the
// three-level approval chain.
type PurchaseOrderHandler struct {
	service poService
}

// NewPurchaseOrderHandler builds a new handler.
func NewPurchaseOrderHandler(service poService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{service: service}
}

// Create godoc
// @Summary Create a purchase order from a ranked quotation
// @Tags PurchaseOrders
// @Accept json
// @Produce json
// @Param payload body dto.CreatePurchaseOrderRequest true "Purchase order payload"
// @Success 201 {object} response.Envelope
// @Router /purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purchase order payload"))
		return
	}
	po, err := h.service.CreateFromRFQ(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, po)
}

// Get godoc
// @Summary Get one purchase order
// @Tags PurchaseOrders
// @Produce json
// @Param id path string true "Purchase order ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	po, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, po, nil)
}

// Approve godoc
// @Summary Approve at the level the caller's role maps to
// @Tags PurchaseOrders
// @Produce json
// @Param id path string true "Purchase order ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-orders/{id}/approve [post]
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	po, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, po, nil)
}

// Issue godoc
// @Summary Issue a fully approved purchase order to the vendor
// @Tags PurchaseOrders
// @Produce json
// @Param id path string true "Purchase order ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-orders/{id}/issue [post]
func (h *PurchaseOrderHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	po, err := h.service.Issue(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, po, nil)
}

// MarkDelivered godoc
// @Summary Record goods receipt against an issued purchase order
// @Tags PurchaseOrders
// @Produce json
// @Param id path string true "Purchase order ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-orders/{id}/deliver [post]
func (h *PurchaseOrderHandler) MarkDelivered(c *gin.Context) {
	claims := claimsFromContext(c)
	po, err := h.service.MarkDelivered(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, po, nil)
}

// Cancel godoc
// @Summary Cancel a purchase order that has not been issued
// @Tags PurchaseOrders
// @Produce json
// @Param id path string true "Purchase order ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	po, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, po, nil)
}

// Document godoc
// @Summary Download the printable purchase order PDF
// @Tags PurchaseOrders
// @Produce application/pdf
// @Param id path string true "Purchase order ID"
// @Success 200 {file} byte
// @Router /purchase-orders/{id}/document [get]
func (h *PurchaseOrderHandler) Document(c *gin.Context) {
	claims := claimsFromContext(c)
	payload, err := h.service.Document(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=purchase-order.pdf")
	c.Data(http.StatusOK, "application/pdf", payload)
}
