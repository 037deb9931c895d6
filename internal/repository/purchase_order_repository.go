package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/societyhq/procurement-api/internal/models"
)

// PurchaseOrderRepository persists purchase orders and their approval
// stamps.
type PurchaseOrderRepository struct {
	db *sqlx.DB
}

// NewPurchaseOrderRepository constructs the repository.
func NewPurchaseOrderRepository(db *sqlx.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// CreateWithTx inserts a purchase order inside the caller's
// transaction, generating the reference number under the same lock.
func (r *PurchaseOrderRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, po *models.PurchaseOrder) error {
	now := time.Now().UTC()
	if po.ID == "" {
		po.ID = uuid.NewString()
	}
	po.CreatedAt = now
	po.UpdatedAt = now

	refNo, err := nextReferenceNo(ctx, tx, "purchase_orders", "PO", po.SocietyID, now)
	if err != nil {
		return err
	}
	po.ReferenceNo = refNo

	const query = `INSERT INTO purchase_orders
	(id, society_id, rfq_id, quotation_id, vendor_id, reference_no, status, approval_remark, total_amount, created_by, created_at, updated_at)
	VALUES (:id, :society_id, :rfq_id, :quotation_id, :vendor_id, :reference_no, :status, :approval_remark, :total_amount, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, po); err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return nil
}

// GetByID fetches a purchase order.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	const query = `SELECT id, society_id, rfq_id, quotation_id, vendor_id, reference_no, status, approval_remark, total_amount,
	created_by, l1_approved_by, l1_approved_at, l2_approved_by, l2_approved_at, l3_approved_by, l3_approved_at,
	issued_at, delivered_at, created_at, updated_at
	FROM purchase_orders WHERE id = $1`
	var po models.PurchaseOrder
	if err := r.db.GetContext(ctx, &po, query, id); err != nil {
		return nil, err
	}
	return &po, nil
}

// GetForUpdate row-locks a purchase order inside the caller's
// transaction. Concurrent approvers serialize on this lock.
func (r *PurchaseOrderRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.PurchaseOrder, error) {
	const query = `SELECT id, society_id, rfq_id, quotation_id, vendor_id, reference_no, status, approval_remark, total_amount,
	created_by, l1_approved_by, l1_approved_at, l2_approved_by, l2_approved_at, l3_approved_by, l3_approved_at,
	issued_at, delivered_at, created_at, updated_at
	FROM purchase_orders WHERE id = $1 FOR UPDATE`
	var po models.PurchaseOrder
	if err := tx.GetContext(ctx, &po, query, id); err != nil {
		return nil, err
	}
	return &po, nil
}

// StampApprovalWithTx records one level's sign-off and advances the
// status, guarded on the pending status for that level.
func (r *PurchaseOrderRepository) StampApprovalWithTx(ctx context.Context, tx *sqlx.Tx, id string, level models.ApprovalLevel, approvedBy string, approvedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE purchase_orders
	SET status = $1, l%d_approved_by = $2, l%d_approved_at = $3, updated_at = $3
	WHERE id = $4 AND status = $5`, level, level)
	result, err := tx.ExecContext(ctx, query, level.NextStatus(), approvedBy, approvedAt, id, level.PendingStatus())
	if err != nil {
		return fmt.Errorf("stamp purchase order approval: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatusWithTx moves a purchase order between statuses, guarded
// on the current one, optionally stamping issue/delivery times.
func (r *PurchaseOrderRepository) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseOrderStatus) error {
	now := time.Now().UTC()
	query := `UPDATE purchase_orders SET status = $1, updated_at = $2`
	switch to {
	case models.POStatusIssued:
		query += ", issued_at = $2"
	case models.POStatusDelivered:
		query += ", delivered_at = $2"
	}
	query += ` WHERE id = $3 AND status = $4`

	result, err := tx.ExecContext(ctx, query, to, now, id, from)
	if err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check purchase order update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
