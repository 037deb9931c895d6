package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/societyhq/procurement-api/internal/dto"
	"github.com/societyhq/procurement-api/internal/models"
	appErrors "github.com/societyhq/procurement-api/pkg/errors"
	"github.com/societyhq/procurement-api/pkg/money"
)

type portalInviteStore interface {
	GetByID(ctx context.Context, id string) (*models.RFQ, error)
	GetInviteByToken(ctx context.Context, token string) (*models.RFQVendorInvite, error)
	GetInviteForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.RFQVendorInvite, error)
	MarkInviteConsumedWithTx(ctx context.Context, tx *sqlx.Tx, inviteID, quotationID string) error
}

type portalQuotationStore interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, q *models.Quotation) error
	GetByID(ctx context.Context, id string) (*models.Quotation, error)
}

type portalRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error)
	UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseRequestStatus) error
}

type quotationRanker interface {
	RerankWithTx(ctx context.Context, tx *sqlx.Tx, rfqID string) error
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// VendorPortalService is the only surface vendors touch. Everything is
// keyed off the opaque invite token; no vendor ever authenticates with
// society credentials.
type VendorPortalService struct {
	rfqs       portalInviteStore
	quotations portalQuotationStore
	requests   portalRequestStore
	ranker     quotationRanker
	cache      snapshotCache
	tx         txProvider
	events     eventEmitter
	metrics    *MetricsService
	logger     *zap.Logger

	snapshotTTL time.Duration
	now         func() time.Time
}

// NewVendorPortalService wires the public portal dependencies.
func NewVendorPortalService(
	rfqs portalInviteStore,
	quotations portalQuotationStore,
	requests portalRequestStore,
	ranker quotationRanker,
	cache snapshotCache,
	tx txProvider,
	events eventEmitter,
	metrics *MetricsService,
	logger *zap.Logger,
	snapshotTTL time.Duration,
) *VendorPortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = noopEmitter{}
	}
	if snapshotTTL <= 0 {
		snapshotTTL = 5 * time.Minute
	}
	return &VendorPortalService{
		rfqs:        rfqs,
		quotations:  quotations,
		requests:    requests,
		ranker:      ranker,
		cache:       cache,
		tx:          tx,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		snapshotTTL: snapshotTTL,
		now:         time.Now,
	}
}

func snapshotCacheKey(token string) string {
	return "vendor-portal:snapshot:" + token
}

// Snapshot returns what the invited vendor may see: the RFQ terms and
// the requested lines, nothing else. Every lookup failure collapses to
// INVALID_TOKEN so the endpoint leaks no information about which
// tokens exist.
func (s *VendorPortalService) Snapshot(ctx context.Context, token string) (*dto.QuoteRequestSnapshot, error) {
	if token == "" {
		return nil, appErrors.ErrInvalidToken
	}

	var cached dto.QuoteRequestSnapshot
	if s.cache != nil {
		if err := s.cache.Get(ctx, snapshotCacheKey(token), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
	}

	invite, err := s.rfqs.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, s.opaque(err)
	}
	rfq, err := s.rfqs.GetByID(ctx, invite.RFQID)
	if err != nil {
		return nil, s.opaque(err)
	}
	pr, err := s.requests.GetByID(ctx, rfq.PurchaseRequestID)
	if err != nil {
		return nil, s.opaque(err)
	}

	snapshot := &dto.QuoteRequestSnapshot{
		RFQReferenceNo: rfq.ReferenceNo,
		Title:          pr.Title,
		Category:       pr.Category,
		Terms:          rfq.Terms,
		Deadline:       rfq.Deadline,
		Submitted:      invite.QuotationID != nil,
	}
	for _, item := range pr.Items {
		snapshot.Items = append(snapshot.Items, dto.SnapshotItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshotCacheKey(token), snapshot, s.snapshotTTL); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	return snapshot, nil
}

// SubmitQuotation consumes an invite token and records the vendor's
// priced quote. Resubmitting the same token returns the already-stored
// quotation rather than an error, so a vendor retrying a timed-out
// request cannot double-submit.
func (s *VendorPortalService) SubmitQuotation(ctx context.Context, req dto.SubmitQuotationRequest) (quotation *models.Quotation, err error) {
	invite, err := s.rfqs.GetInviteByToken(ctx, req.Token)
	if err != nil {
		return nil, s.opaque(err)
	}
	rfq, err := s.rfqs.GetByID(ctx, invite.RFQID)
	if err != nil {
		return nil, s.opaque(err)
	}

	if invite.QuotationID != nil {
		return s.quotations.GetByID(ctx, *invite.QuotationID)
	}
	if rfq.Status != models.RFQStatusSent {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "rfq is no longer accepting quotations")
	}
	if s.now().After(rfq.Deadline) {
		return nil, appErrors.ErrDeadlinePassed
	}

	items, totals, err := priceQuoteItems(req.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin quotation transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := s.rfqs.GetInviteForUpdate(ctx, tx, invite.ID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock invite")
		return nil, err
	}
	if locked.QuotationID != nil {
		// Lost the race to a concurrent submission with the same token.
		existingID := *locked.QuotationID
		_ = tx.Rollback()
		err = nil
		return s.quotations.GetByID(ctx, existingID)
	}

	quotation = &models.Quotation{
		RFQID:       rfq.ID,
		VendorID:    locked.VendorID,
		Subtotal:    totals.Subtotal,
		GSTAmount:   totals.GST,
		TotalAmount: totals.Total,
		Terms:       req.Terms,
		Items:       items,
	}
	if err = s.quotations.CreateWithTx(ctx, tx, quotation); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store quotation")
		return nil, err
	}
	if err = s.rfqs.MarkInviteConsumedWithTx(ctx, tx, locked.ID, quotation.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume invite")
		return nil, err
	}

	// First quotation moves the request forward; later ones find it
	// already advanced, which is fine.
	if err = s.requests.UpdateStatusWithTx(ctx, tx, rfq.PurchaseRequestID, models.PRStatusRFQSent, models.PRStatusQuotesReceived); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance purchase request")
			return nil, err
		}
		err = nil
	}

	if err = s.ranker.RerankWithTx(ctx, tx, rfq.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank quotations")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit quotation")
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Delete(ctx, snapshotCacheKey(req.Token)); cacheErr != nil {
			s.logger.Warn("snapshot cache invalidation failed", zap.Error(cacheErr))
		}
	}
	s.metrics.CountQuotationSubmitted()
	s.events.Emit(models.DomainEvent{
		Type:      models.EventQuotationSubmitted,
		SocietyID: rfq.SocietyID,
		EntityID:  quotation.ID,
		Status:    string(models.QuotationStatusSubmitted),
		Payload: map[string]any{
			"rfq_id":       rfq.ID,
			"reference_no": quotation.ReferenceNo,
			"total_amount": quotation.TotalAmount.String(),
		},
	})
	return quotation, nil
}

// priceQuoteItems converts the boundary payload into priced lines.
func priceQuoteItems(inputs []dto.QuoteItemInput) ([]models.QuotationItem, money.Totals, error) {
	items := make([]models.QuotationItem, 0, len(inputs))
	lines := make([]money.Line, 0, len(inputs))
	for i, input := range inputs {
		unitPrice, err := money.Parse(input.UnitPrice)
		if err != nil {
			return nil, money.Totals{}, err
		}
		gstRate, err := money.ParseRate(input.GSTRate)
		if err != nil {
			return nil, money.Totals{}, err
		}
		line := money.Line{Quantity: input.Quantity, UnitPrice: unitPrice, GSTRate: gstRate}
		if line.Quantity <= 0 {
			return nil, money.Totals{}, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		lines = append(lines, line)
		items = append(items, models.QuotationItem{
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   unitPrice,
			GSTRate:     gstRate,
			LineTotal:   line.LineTotal(),
		})
	}
	totals, err := money.ComputeTotals(lines)
	if err != nil {
		return nil, money.Totals{}, err
	}
	return items, totals, nil
}

// opaque maps any token-path lookup failure to INVALID_TOKEN, logging
// real infrastructure errors before hiding them.
func (s *VendorPortalService) opaque(err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("vendor portal lookup failed", zap.Error(err))
	}
	return appErrors.ErrInvalidToken
}
