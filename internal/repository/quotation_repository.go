package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/societyhq/procurement-api/internal/models"
)

// QuotationRepository persists vendor quotations and their ranks.
type QuotationRepository struct {
	db *sqlx.DB
}

// NewQuotationRepository constructs the repository.
func NewQuotationRepository(db *sqlx.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// CreateWithTx inserts a quotation with its items inside the caller's
// transaction. The unique index on (rfq_id, vendor_id) is the backstop
// against duplicate submission even if the invite lock were bypassed.
func (r *QuotationRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, q *models.Quotation) error {
	now := time.Now().UTC()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.SubmittedAt.IsZero() {
		q.SubmittedAt = now
	}
	q.Status = models.QuotationStatusSubmitted

	refNo, err := nextQuotationReferenceNo(ctx, tx, q.RFQID, now)
	if err != nil {
		return err
	}
	q.ReferenceNo = refNo

	const insertQuotation = `INSERT INTO quotations
	(id, rfq_id, vendor_id, reference_no, status, subtotal, gst_amount, total_amount, terms, submitted_at)
	VALUES (:id, :rfq_id, :vendor_id, :reference_no, :status, :subtotal, :gst_amount, :total_amount, :terms, :submitted_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuotation, q); err != nil {
		return fmt.Errorf("insert quotation: %w", err)
	}

	const insertItem = `INSERT INTO quotation_items
	(id, quotation_id, description, quantity, unit_price, gst_rate, line_total, position)
	VALUES (:id, :quotation_id, :description, :quantity, :unit_price, :gst_rate, :line_total, :position)`
	for i := range q.Items {
		item := &q.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.QuotationID = q.ID
		item.Position = i + 1
		if _, err := tx.NamedExecContext(ctx, insertItem, item); err != nil {
			return fmt.Errorf("insert quotation item: %w", err)
		}
	}
	return nil
}

// nextQuotationReferenceNo numbers quotations within their RFQ rather
// than per society, so vendors cannot infer society-wide volume. The
// advisory lock serializes concurrent vendors, whose invite row locks
// do not conflict with each other.
func nextQuotationReferenceNo(ctx context.Context, q sqlx.ExtContext, rfqID string, now time.Time) (string, error) {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "quotations/"+rfqID); err != nil {
		return "", fmt.Errorf("acquire reference lock for quotations: %w", err)
	}

	const query = `SELECT COUNT(*) FROM quotations WHERE rfq_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, rfqID); err != nil {
		return "", fmt.Errorf("count quotations: %w", err)
	}
	return fmt.Sprintf("QTN-%s-%03d", now.Format("200601"), count+1), nil
}

// GetByID fetches a quotation with its items.
func (r *QuotationRepository) GetByID(ctx context.Context, id string) (*models.Quotation, error) {
	const query = `SELECT id, rfq_id, vendor_id, reference_no, status, subtotal, gst_amount, total_amount, rank, terms, submitted_at
	FROM quotations WHERE id = $1`
	var quotation models.Quotation
	if err := r.db.GetContext(ctx, &quotation, query, id); err != nil {
		return nil, err
	}

	const itemQuery = `SELECT id, quotation_id, description, quantity, unit_price, gst_rate, line_total, position
	FROM quotation_items WHERE quotation_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &quotation.Items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("load quotation items: %w", err)
	}
	return &quotation, nil
}

// ListByRFQ returns all quotations for one RFQ ordered by submission.
func (r *QuotationRepository) ListByRFQ(ctx context.Context, rfqID string) ([]models.Quotation, error) {
	const query = `SELECT id, rfq_id, vendor_id, reference_no, status, subtotal, gst_amount, total_amount, rank, terms, submitted_at
	FROM quotations WHERE rfq_id = $1 ORDER BY submitted_at`
	var quotations []models.Quotation
	if err := r.db.SelectContext(ctx, &quotations, query, rfqID); err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	return quotations, nil
}

// ListByRFQForUpdate row-locks all quotations of an RFQ inside the
// caller's transaction; ranking rewrites ranks under this lock.
func (r *QuotationRepository) ListByRFQForUpdate(ctx context.Context, tx *sqlx.Tx, rfqID string) ([]models.Quotation, error) {
	const query = `SELECT id, rfq_id, vendor_id, reference_no, status, subtotal, gst_amount, total_amount, rank, terms, submitted_at
	FROM quotations WHERE rfq_id = $1 ORDER BY submitted_at FOR UPDATE`
	var quotations []models.Quotation
	if err := tx.SelectContext(ctx, &quotations, query, rfqID); err != nil {
		return nil, fmt.Errorf("lock quotations: %w", err)
	}
	return quotations, nil
}

// UpdateRankWithTx writes one quotation's rank.
func (r *QuotationRepository) UpdateRankWithTx(ctx context.Context, tx *sqlx.Tx, id string, rank int) error {
	const query = `UPDATE quotations SET rank = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, rank, id); err != nil {
		return fmt.Errorf("update quotation rank: %w", err)
	}
	return nil
}

// UpdateStatusWithTx moves a quotation between SUBMITTED and a decided
// state, guarded on the current status.
func (r *QuotationRepository) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.QuotationStatus) error {
	const query = `UPDATE quotations SET status = $1 WHERE id = $2 AND status = $3`
	result, err := tx.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update quotation status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check quotation update rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("quotation %s not in status %s", id, from)
	}
	return nil
}
