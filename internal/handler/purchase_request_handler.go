package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, req dto.CreatePurchaseRequestRequest, actor *models.JWTClaims) (*models.PurchaseRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PurchaseRequest, error)
	List(ctx context.Context, query dto.PurchaseRequestQuery, actor *models.JWTClaims) ([]models.PurchaseRequest, error)
	Open(ctx context.Context, id string, actor *models.JWTClaims) (*models.PurchaseRequest, error)
	SendRFQ(ctx context.Context, prID string, req dto.SendRFQRequest, actor *models.JWTClaims) (*models.RFQ, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) error
}

// PurchaseRequestHandler exposes the purchase request lifecycle.
type PurchaseRequestHandler struct {
	service requestService
}

// NewPurchaseRequestHandler builds a new handler.
func NewPurchaseRequestHandler(service requestService) *PurchaseRequestHandler {
	return &PurchaseRequestHandler{service: service}
}

// Create godoc
// @Summary Create a purchase request
// @Tags PurchaseRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreatePurchaseRequestRequest true "Purchase request payload"
// @Success 201 {object} response.Envelope
// @Router /purchase-requests [post]
func (h *PurchaseRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreatePurchaseRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purchase request payload"))
		return
	}
	pr, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pr)
}

// Get godoc
// @Summary Get one purchase request
// @Tags PurchaseRequests
// @Produce json
// @Param id path string true "Purchase request ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-requests/{id} [get]
func (h *PurchaseRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	pr, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pr, nil)
}

// List godoc
// @Summary List purchase requests
// @Tags PurchaseRequests
// @Produce json
// @Param status query string false "Status filter"
// @Param category query string false "Category filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /purchase-requests [get]
func (h *PurchaseRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	query := dto.PurchaseRequestQuery{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     page,
		PageSize: pageSize,
	}
	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Open godoc
// @Summary Open a draft purchase request
// @Tags PurchaseRequests
// @Produce json
// @Param id path string true "Purchase request ID"
// @Success 200 {object} response.Envelope
// @Router /purchase-requests/{id}/open [post]
func (h *PurchaseRequestHandler) Open(c *gin.Context) {
	claims := claimsFromContext(c)
	pr, err := h.service.Open(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pr, nil)
}

// SendRFQ godoc
// @Summary Send an RFQ to all approved vendors in the category
// @Tags PurchaseRequests
// @Accept json
// @Produce json
// @Param id path string true "Purchase request ID"
// @Param payload body dto.SendRFQRequest true "RFQ payload"
// @Success 201 {object} response.Envelope
// @Router /purchase-requests/{id}/send-rfq [post]
func (h *PurchaseRequestHandler) SendRFQ(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.SendRFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rfq payload"))
		return
	}
	rfq, err := h.service.SendRFQ(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rfq)
}

// Cancel godoc
// @Summary Cancel a purchase request
// @Tags PurchaseRequests
// @Produce json
// @Param id path string true "Purchase request ID"
// @Success 204
// @Router /purchase-requests/{id} [delete]
func (h *PurchaseRequestHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
