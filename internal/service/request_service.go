package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/internal/repository"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/money"
)

type purchaseRequestStore interface {
	Create(ctx context.Context, pr *models.PurchaseRequest) error
	GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error)
	List(ctx context.Context, filter repository.PurchaseRequestFilter) ([]models.PurchaseRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.PurchaseRequestStatus) error
	UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseRequestStatus) error
}

type vendorDirectory interface {
	ListApprovedVendors(ctx context.Context, societyID, category string) ([]models.Vendor, error)
}

type rfqStore interface {
	CreateWithInvites(ctx context.Context, tx *sqlx.Tx, rfq *models.RFQ, invites []models.RFQVendorInvite) error
	GetByID(ctx context.Context, id string) (*models.RFQ, error)
	ListInvitesByRFQ(ctx context.Context, rfqID string) ([]models.RFQVendorInvite, error)
}

// RequestService drives the purchase request lifecycle from draft
// through RFQ dispatch.
type RequestService struct {
	requests purchaseRequestStore
	rfqs     rfqStore
	vendors  vendorDirectory
	tx       txProvider
	events   eventEmitter
	metrics  *MetricsService
	logger   *zap.Logger

	defaultDeadline time.Duration
}

// NewRequestService wires the request lifecycle dependencies.
func NewRequestService(
	requests purchaseRequestStore,
	rfqs rfqStore,
	vendors vendorDirectory,
	tx txProvider,
	events eventEmitter,
	metrics *MetricsService,
	logger *zap.Logger,
	defaultDeadline time.Duration,
) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = noopEmitter{}
	}
	if defaultDeadline <= 0 {
		defaultDeadline = 7 * 24 * time.Hour
	}
	return &RequestService{
		requests:        requests,
		rfqs:            rfqs,
		vendors:         vendors,
		tx:              tx,
		events:          events,
		metrics:         metrics,
		logger:          logger,
		defaultDeadline: defaultDeadline,
	}
}

// Create stores a new purchase request with its line items.
func (s *RequestService) Create(ctx context.Context, req dto.CreatePurchaseRequestRequest, actor *models.JWTClaims) (*models.PurchaseRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	items := make([]models.PurchaseRequestItem, 0, len(req.Items))
	for i, input := range req.Items {
		if input.Quantity <= 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		price, err := money.Parse(input.EstimatedPrice)
		if err != nil {
			return nil, err
		}
		if price < 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("item %d: estimated price must not be negative", i+1))
		}
		items = append(items, models.PurchaseRequestItem{
			Description:    input.Description,
			Quantity:       input.Quantity,
			Unit:           input.Unit,
			EstimatedPrice: price,
		})
	}

	status := models.PRStatusOpen
	if req.Draft {
		status = models.PRStatusDraft
	}
	priority := req.Priority
	if priority == "" {
		priority = "NORMAL"
	}

	pr := &models.PurchaseRequest{
		SocietyID:   actor.SocietyID,
		Title:       req.Title,
		Category:    req.Category,
		Priority:    priority,
		Status:      status,
		RequestedBy: actor.UserID,
		Items:       items,
	}
	if err := s.requests.Create(ctx, pr); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create purchase request")
	}
	return pr, nil
}

// Get loads one purchase request scoped to the actor's society.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PurchaseRequest, error) {
	pr, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// List returns purchase requests for the actor's society.
func (s *RequestService) List(ctx context.Context, query dto.PurchaseRequestQuery, actor *models.JWTClaims) ([]models.PurchaseRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := repository.PurchaseRequestFilter{
		SocietyID: actor.SocietyID,
		Status:    models.PurchaseRequestStatus(query.Status),
		Category:  query.Category,
		Limit:     query.PageSize,
	}
	if query.Page > 1 && query.PageSize > 0 {
		filter.Offset = (query.Page - 1) * query.PageSize
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purchase requests")
	}
	return requests, nil
}

// Open moves a draft request into circulation.
func (s *RequestService) Open(ctx context.Context, id string, actor *models.JWTClaims) (*models.PurchaseRequest, error) {
	pr, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if pr.RequestedBy != actor.UserID && actor.Role != models.RoleSocietyAdmin {
		return nil, appErrors.ErrForbidden
	}
	if !pr.Status.CanTransition(models.PRStatusOpen) {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase request is %s, not DRAFT", pr.Status))
	}
	if err := s.requests.UpdateStatus(ctx, id, pr.Status, models.PRStatusOpen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "purchase request was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open purchase request")
	}
	pr.Status = models.PRStatusOpen
	return pr, nil
}

// SendRFQ atomically moves the request to RFQ_SENT and creates the RFQ
// with one tokenised invite per approved vendor in the category.
func (s *RequestService) SendRFQ(ctx context.Context, prID string, req dto.SendRFQRequest, actor *models.JWTClaims) (rfq *models.RFQ, err error) {
	pr, err := s.load(ctx, prID, actor)
	if err != nil {
		return nil, err
	}
	if !pr.Status.CanTransition(models.PRStatusRFQSent) {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase request is %s, not OPEN", pr.Status))
	}

	deadline := time.Now().UTC().Add(s.defaultDeadline)
	if req.Deadline != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.Deadline)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be RFC3339")
		}
		if !parsed.After(time.Now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "deadline must be in the future")
		}
		deadline = parsed.UTC()
	}

	vendors, err := s.vendors.ListApprovedVendors(ctx, pr.SocietyID, pr.Category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vendor directory")
	}
	if len(vendors) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoMatchingVendors, fmt.Sprintf("no approved vendors for category %q", pr.Category))
	}

	invites := make([]models.RFQVendorInvite, 0, len(vendors))
	for _, vendor := range vendors {
		token, tokenErr := newInviteToken()
		if tokenErr != nil {
			return nil, appErrors.Wrap(tokenErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invite token")
		}
		invites = append(invites, models.RFQVendorInvite{VendorID: vendor.ID, Token: token})
	}

	rfq = &models.RFQ{
		PurchaseRequestID: pr.ID,
		SocietyID:         pr.SocietyID,
		Deadline:          deadline,
		Terms:             req.Terms,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin rfq transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.requests.UpdateStatusWithTx(ctx, tx, pr.ID, pr.Status, models.PRStatusRFQSent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrStateConflict, "purchase request was updated concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance purchase request")
		return nil, err
	}
	if err = s.rfqs.CreateWithInvites(ctx, tx, rfq, invites); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rfq")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit rfq")
		return nil, err
	}

	s.metrics.CountRFQSent()
	s.events.Emit(models.DomainEvent{
		Type:      models.EventRFQSent,
		SocietyID: pr.SocietyID,
		EntityID:  rfq.ID,
		Status:    string(models.RFQStatusSent),
		Payload: map[string]any{
			"purchase_request_id": pr.ID,
			"reference_no":        rfq.ReferenceNo,
			"vendor_count":        len(invites),
			"deadline":            deadline,
		},
	})
	return rfq, nil
}

// Cancel aborts a purchase request from any non-terminal state.
func (s *RequestService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	pr, err := s.load(ctx, id, actor)
	if err != nil {
		return err
	}
	if pr.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase request already %s", pr.Status))
	}
	if err := s.requests.UpdateStatus(ctx, id, pr.Status, models.PRStatusCancelled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStateConflict, "purchase request was updated concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel purchase request")
	}
	return nil
}

func (s *RequestService) load(ctx context.Context, id string, actor *models.JWTClaims) (*models.PurchaseRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	pr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchase request")
	}
	if pr.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrForbidden
	}
	return pr, nil
}

// newInviteToken returns a 256-bit random opaque token. It is the sole
// credential for the public quote endpoint, so it must not be
// derivable from any other field.
func newInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
