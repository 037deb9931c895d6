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
	"github.com/societyhq/procurement-api/pkg/export"
)

type purchaseOrderStore interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, po *models.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*models.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PurchaseOrder, error)
	StampApprovalWithTx(ctx context.Context, tx *sqlx.Tx, id string, level models.ApprovalLevel, approvedBy string, approvedAt time.Time) error
	UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseOrderStatus) error
}

type poRFQStore interface {
	GetByID(ctx context.Context, id string) (*models.RFQ, error)
	CloseWithTx(ctx context.Context, tx *sqlx.Tx, id string) error
}

type poQuotationStore interface {
	GetByID(ctx context.Context, id string) (*models.Quotation, error)
	ListByRFQForUpdate(ctx context.Context, tx *sqlx.Tx, rfqID string) ([]models.Quotation, error)
	UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.QuotationStatus) error
}

type poRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error)
	UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseRequestStatus) error
}

type poVendorReader interface {
	GetByID(ctx context.Context, id string) (*models.Vendor, error)
}

// POService creates purchase orders from ranked quotations and walks
// them through the sequential three-level approval chain.
type POService struct {
	orders     purchaseOrderStore
	rfqs       poRFQStore
	quotations poQuotationStore
	requests   poRequestStore
	vendors    poVendorReader
	tx         txProvider
	events     eventEmitter
	metrics    *MetricsService
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewPOService wires the purchase order dependencies.
func NewPOService(
	orders purchaseOrderStore,
	rfqs poRFQStore,
	quotations poQuotationStore,
	requests poRequestStore,
	vendors poVendorReader,
	tx txProvider,
	events eventEmitter,
	metrics *MetricsService,
	logger *zap.Logger,
) *POService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = noopEmitter{}
	}
	return &POService{
		orders:     orders,
		rfqs:       rfqs,
		quotations: quotations,
		requests:   requests,
		vendors:    vendors,
		tx:         tx,
		events:     events,
		metrics:    metrics,
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// CreateFromRFQ accepts one quotation, rejects its competitors, closes
// the RFQ and opens a PO at PENDING_L1, all in one transaction.
// Selecting any quotation other than rank 1 requires a justification
// remark.
func (s *POService) CreateFromRFQ(ctx context.Context, req dto.CreatePurchaseOrderRequest, actor *models.JWTClaims) (po *models.PurchaseOrder, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	rfq, err := s.rfqs.GetByID(ctx, req.RFQID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rfq")
	}
	if rfq.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrForbidden
	}

	quotation, err := s.quotations.GetByID(ctx, req.QuotationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quotation")
	}
	if quotation.RFQID != rfq.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quotation does not belong to this rfq")
	}
	if quotation.Status != models.QuotationStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("quotation already %s", quotation.Status))
	}
	if (quotation.Rank == nil || *quotation.Rank != 1) && req.ApprovalRemark == "" {
		return nil, appErrors.ErrJustificationRequired
	}

	pr, err := s.requests.GetByID(ctx, rfq.PurchaseRequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchase request")
	}
	if !pr.Status.CanTransition(models.PRStatusPOCreated) {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase request is %s, not QUOTES_RECEIVED", pr.Status))
	}

	po = &models.PurchaseOrder{
		SocietyID:   rfq.SocietyID,
		RFQID:       rfq.ID,
		QuotationID: quotation.ID,
		VendorID:    quotation.VendorID,
		Status:      models.POStatusPendingL1,
		TotalAmount: quotation.TotalAmount,
		CreatedBy:   actor.UserID,
	}
	if req.ApprovalRemark != "" {
		po.ApprovalRemark = &req.ApprovalRemark
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin purchase order transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.requests.UpdateStatusWithTx(ctx, tx, pr.ID, pr.Status, models.PRStatusPOCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrStateConflict, "purchase request was updated concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance purchase request")
		return nil, err
	}

	competitors, err := s.quotations.ListByRFQForUpdate(ctx, tx, rfq.ID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock quotations")
		return nil, err
	}
	for _, other := range competitors {
		if other.Status != models.QuotationStatusSubmitted {
			continue
		}
		target := models.QuotationStatusRejected
		if other.ID == quotation.ID {
			target = models.QuotationStatusAccepted
		}
		if err = s.quotations.UpdateStatusWithTx(ctx, tx, other.ID, models.QuotationStatusSubmitted, target); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide quotation")
			return nil, err
		}
	}

	if err = s.rfqs.CloseWithTx(ctx, tx, rfq.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close rfq")
		return nil, err
	}
	if err = s.orders.CreateWithTx(ctx, tx, po); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create purchase order")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit purchase order")
		return nil, err
	}

	s.emitStatus(po, "")
	return po, nil
}

// Approve records the actor's sign-off at the level their role maps
// to. Approving out of turn fails with WRONG_LEVEL rather than a
// generic conflict so the caller knows whose turn it is.
func (s *POService) Approve(ctx context.Context, poID string, actor *models.JWTClaims) (po *models.PurchaseOrder, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	level, ok := models.RoleToApprovalLevel(actor.Role)
	if !ok {
		return nil, appErrors.ErrForbidden
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin approval transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	po, err = s.orders.GetForUpdate(ctx, tx, poID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrNotFound
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock purchase order")
		return nil, err
	}
	if po.SocietyID != actor.SocietyID {
		err = appErrors.ErrForbidden
		return nil, err
	}
	if po.Status != level.PendingStatus() {
		switch po.Status {
		case models.POStatusPendingL1, models.POStatusPendingL2, models.POStatusPendingL3:
			err = appErrors.Clone(appErrors.ErrWrongLevel, fmt.Sprintf("purchase order is at %s, not %s", po.Status, level.PendingStatus()))
		default:
			err = appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase order is %s", po.Status))
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.orders.StampApprovalWithTx(ctx, tx, po.ID, level, actor.UserID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrStateConflict, "purchase order was updated concurrently")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp approval")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit approval")
		return nil, err
	}

	po.Status = level.NextStatus()
	switch level {
	case models.ApprovalLevelL1:
		po.L1ApprovedBy, po.L1ApprovedAt = &actor.UserID, &now
	case models.ApprovalLevelL2:
		po.L2ApprovedBy, po.L2ApprovedAt = &actor.UserID, &now
	case models.ApprovalLevelL3:
		po.L3ApprovedBy, po.L3ApprovedAt = &actor.UserID, &now
	}
	po.UpdatedAt = now

	s.metrics.CountPOApproval(int(level))
	s.emitStatus(po, actor.UserID)
	return po, nil
}

// Issue releases a fully approved PO to the vendor.
func (s *POService) Issue(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error) {
	return s.advance(ctx, poID, actor, models.POStatusApproved, models.POStatusIssued)
}

// MarkDelivered records goods receipt against an issued PO.
func (s *POService) MarkDelivered(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error) {
	return s.advance(ctx, poID, actor, models.POStatusIssued, models.POStatusDelivered)
}

// Cancel aborts a PO that has not yet been issued.
func (s *POService) Cancel(ctx context.Context, poID string, actor *models.JWTClaims) (po *models.PurchaseOrder, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin cancel transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	po, err = s.orders.GetForUpdate(ctx, tx, poID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrNotFound
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock purchase order")
		return nil, err
	}
	if po.SocietyID != actor.SocietyID {
		err = appErrors.ErrForbidden
		return nil, err
	}
	if !po.Status.CanTransition(models.POStatusCancelled) {
		err = appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase order is %s and can no longer be cancelled", po.Status))
		return nil, err
	}
	if err = s.orders.UpdateStatusWithTx(ctx, tx, po.ID, po.Status, models.POStatusCancelled); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel purchase order")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancel")
		return nil, err
	}

	po.Status = models.POStatusCancelled
	s.emitStatus(po, actor.UserID)
	return po, nil
}

// Get loads one purchase order scoped to the actor's society.
func (s *POService) Get(ctx context.Context, poID string, actor *models.JWTClaims) (*models.PurchaseOrder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	po, err := s.orders.GetByID(ctx, poID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load purchase order")
	}
	if po.SocietyID != actor.SocietyID {
		return nil, appErrors.ErrForbidden
	}
	return po, nil
}

// Document renders the printable PO sent to the vendor: the accepted
// quotation's lines plus the approval stamps collected so far.
func (s *POService) Document(ctx context.Context, poID string, actor *models.JWTClaims) ([]byte, error) {
	po, err := s.Get(ctx, poID, actor)
	if err != nil {
		return nil, err
	}
	quotation, err := s.quotations.GetByID(ctx, po.QuotationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quotation for document")
	}

	vendorName := po.VendorID
	if vendor, vErr := s.vendors.GetByID(ctx, po.VendorID); vErr == nil {
		vendorName = vendor.Name
	} else {
		s.logger.Warn("vendor lookup failed for po document", zap.String("vendor_id", po.VendorID), zap.Error(vErr))
	}

	headers := []string{"#", "Description", "Qty", "Unit Price", "GST %", "Line Total"}
	rows := make([]map[string]string, 0, len(quotation.Items)+3)
	for _, item := range quotation.Items {
		rows = append(rows, map[string]string{
			"#":           fmt.Sprintf("%d", item.Position),
			"Description": item.Description,
			"Qty":         fmt.Sprintf("%d", item.Quantity),
			"Unit Price":  item.UnitPrice.String(),
			"GST %":       item.GSTRate.String(),
			"Line Total":  item.LineTotal.String(),
		})
	}
	rows = append(rows,
		map[string]string{"Description": "Subtotal", "Line Total": quotation.Subtotal.String()},
		map[string]string{"Description": "GST", "Line Total": quotation.GSTAmount.String()},
		map[string]string{"Description": "Grand Total", "Line Total": po.TotalAmount.String()},
	)

	title := fmt.Sprintf("Purchase Order %s / %s (%s)", po.ReferenceNo, vendorName, po.Status)
	payload, err := s.pdf.Render(export.Dataset{Headers: headers, Rows: rows}, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render po document")
	}
	return payload, nil
}

func (s *POService) advance(ctx context.Context, poID string, actor *models.JWTClaims, from, to models.PurchaseOrderStatus) (po *models.PurchaseOrder, err error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin status transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	po, err = s.orders.GetForUpdate(ctx, tx, poID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrNotFound
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock purchase order")
		return nil, err
	}
	if po.SocietyID != actor.SocietyID {
		err = appErrors.ErrForbidden
		return nil, err
	}
	if po.Status != from {
		err = appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("purchase order is %s, not %s", po.Status, from))
		return nil, err
	}
	if err = s.orders.UpdateStatusWithTx(ctx, tx, po.ID, from, to); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update purchase order status")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit status change")
		return nil, err
	}

	now := time.Now().UTC()
	po.Status = to
	switch to {
	case models.POStatusIssued:
		po.IssuedAt = &now
	case models.POStatusDelivered:
		po.DeliveredAt = &now
	}
	po.UpdatedAt = now
	s.emitStatus(po, actor.UserID)
	return po, nil
}

func (s *POService) emitStatus(po *models.PurchaseOrder, actorID string) {
	payload := map[string]any{
		"reference_no": po.ReferenceNo,
		"vendor_id":    po.VendorID,
		"total_amount": po.TotalAmount.String(),
	}
	if actorID != "" {
		payload["actor_id"] = actorID
	}
	s.events.Emit(models.DomainEvent{
		Type:      models.EventPOStatusChanged,
		SocietyID: po.SocietyID,
		EntityID:  po.ID,
		Status:    string(po.Status),
		Payload:   payload,
	})
}
