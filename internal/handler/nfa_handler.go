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

type nfaService interface {
	Create(ctx context.Context, req dto.CreateNFARequest, actor *models.JWTClaims) (*models.NoteForApproval, error)
	Get(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error)
	Approvals(ctx context.Context, nfaID string, actor *models.JWTClaims) ([]models.NFAApproval, error)
	Submit(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error)
	CastVote(ctx context.Context, nfaID string, req dto.CastVoteRequest, actor *models.JWTClaims) (*models.NoteForApproval, error)
	DecideTreasurer(ctx context.Context, nfaID string, req dto.TreasurerDecisionRequest, actor *models.JWTClaims) (*models.NoteForApproval, error)
	MarkPOCreated(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error)
	MarkCompleted(ctx context.Context, nfaID string, actor *models.JWTClaims) (*models.NoteForApproval, error)
}

// NFAHandler exposes the quorum-based note-for-approval route.
type NFAHandler struct {
	service nfaService
}

// NewNFAHandler builds a new handler.
func NewNFAHandler(service nfaService) *NFAHandler {
	return &NFAHandler{service: service}
}

// Create godoc
// @Summary Create a draft note for approval
// @Tags NFAs
// @Accept json
// @Produce json
// @Param payload body dto.CreateNFARequest true "NFA payload"
// @Success 201 {object} response.Envelope
// @Router /nfas [post]
func (h *NFAHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CreateNFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid nfa payload"))
		return
	}
	nfa, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, nfa)
}

// Get godoc
// @Summary Get one NFA with items and competing quotes
// @Tags NFAs
// @Produce json
// @Param id path string true "NFA ID"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id} [get]
func (h *NFAHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	nfa, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nfa, nil)
}

// Approvals godoc
// @Summary List the vote trail for an NFA
// @Tags NFAs
// @Produce json
// @Param id path string true "NFA ID"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id}/approvals [get]
func (h *NFAHandler) Approvals(c *gin.Context) {
	claims := claimsFromContext(c)
	approvals, err := h.service.Approvals(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approvals, nil)
}

// Submit godoc
// @Summary Submit a draft NFA for committee voting
// @Tags NFAs
// @Produce json
// @Param id path string true "NFA ID"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id}/submit [post]
func (h *NFAHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	nfa, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nfa, nil)
}

// Vote godoc
// @Summary Cast a committee member's vote
// @Tags NFAs
// @Accept json
// @Produce json
// @Param id path string true "NFA ID"
// @Param payload body dto.CastVoteRequest true "Vote payload"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id}/vote [post]
func (h *NFAHandler) Vote(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vote payload"))
		return
	}
	nfa, err := h.service.CastVote(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nfa, nil)
}

// Decide godoc
// @Summary Record the trailing treasurer decision
// @Tags NFAs
// @Accept json
// @Produce json
// @Param id path string true "NFA ID"
// @Param payload body dto.TreasurerDecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id}/treasurer-decision [post]
func (h *NFAHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.TreasurerDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	nfa, err := h.service.DecideTreasurer(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nfa, nil)
}

// MarkPOCreated godoc
// @Summary Link an approved NFA to procurement execution
// @Tags NFAs
// @Produce json
// @Param id path string true "NFA ID"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id}/po-created [post]
func (h *NFAHandler) MarkPOCreated(c *gin.Context) {
	claims := claimsFromContext(c)
	nfa, err := h.service.MarkPOCreated(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nfa, nil)
}

// MarkCompleted godoc
// @Summary Close out an NFA once the purchase is done
// @Tags NFAs
// @Produce json
// @Param id path string true "NFA ID"
// @Success 200 {object} response.Envelope
// @Router /nfas/{id}/complete [post]
func (h *NFAHandler) MarkCompleted(c *gin.Context) {
	claims := claimsFromContext(c)
	nfa, err := h.service.MarkCompleted(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nfa, nil)
}
