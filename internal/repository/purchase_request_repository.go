package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/societyhq/procurement-api/internal/models"
)

// PurchaseRequestRepository persists purchase requests and their items.
type PurchaseRequestRepository struct {
	db *sqlx.DB
}

// NewPurchaseRequestRepository constructs the repository.
func NewPurchaseRequestRepository(db *sqlx.DB) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{db: db}
}

// Create inserts a purchase request with its items, generating the
// reference number in the same transaction.
func (r *PurchaseRequestRepository) Create(ctx context.Context, pr *models.PurchaseRequest) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purchase request transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if pr.ID == "" {
		pr.ID = uuid.NewString()
	}
	pr.CreatedAt = now
	pr.UpdatedAt = now

	pr.ReferenceNo, err = nextReferenceNo(ctx, tx, "purchase_requests", "PR", pr.SocietyID, now)
	if err != nil {
		return err
	}

	const insertPR = `INSERT INTO purchase_requests
	(id, society_id, reference_no, title, category, priority, status, requested_by, created_at, updated_at)
	VALUES (:id, :society_id, :reference_no, :title, :category, :priority, :status, :requested_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertPR, pr); err != nil {
		return fmt.Errorf("insert purchase request: %w", err)
	}

	const insertItem = `INSERT INTO purchase_request_items
	(id, purchase_request_id, description, quantity, unit, estimated_price, position)
	VALUES (:id, :purchase_request_id, :description, :quantity, :unit, :estimated_price, :position)`
	for i := range pr.Items {
		item := &pr.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.PurchaseRequestID = pr.ID
		item.Position = i + 1
		if _, err = tx.NamedExecContext(ctx, insertItem, item); err != nil {
			return fmt.Errorf("insert purchase request item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase request: %w", err)
	}
	return nil
}

// GetByID fetches a purchase request with its items.
func (r *PurchaseRequestRepository) GetByID(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	const query = `SELECT id, society_id, reference_no, title, category, priority, status, requested_by, created_at, updated_at
	FROM purchase_requests WHERE id = $1`
	var pr models.PurchaseRequest
	if err := r.db.GetContext(ctx, &pr, query, id); err != nil {
		return nil, err
	}

	const itemQuery = `SELECT id, purchase_request_id, description, quantity, unit, estimated_price, position
	FROM purchase_request_items WHERE purchase_request_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &pr.Items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("load purchase request items: %w", err)
	}
	return &pr, nil
}

// PurchaseRequestFilter captures listing criteria.
type PurchaseRequestFilter struct {
	SocietyID string
	Status    models.PurchaseRequestStatus
	Category  string
	Limit     int
	Offset    int
}

// List returns purchase requests matching the filter, newest first.
func (r *PurchaseRequestRepository) List(ctx context.Context, filter PurchaseRequestFilter) ([]models.PurchaseRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT id, society_id, reference_no, title, category, priority, status, requested_by, created_at, updated_at
	FROM purchase_requests WHERE society_id = $1`)
	args = append(args, filter.SocietyID)

	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		builder.WriteString(fmt.Sprintf(" AND category = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.PurchaseRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus moves a purchase request from one status to another.
// The guard on the current status makes concurrent transitions lose
// cleanly with sql.ErrNoRows instead of double-applying.
func (r *PurchaseRequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.PurchaseRequestStatus) error {
	return r.updateStatus(ctx, r.db, id, from, to)
}

// UpdateStatusWithTx is UpdateStatus inside a caller-owned transaction.
func (r *PurchaseRequestRepository) UpdateStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.PurchaseRequestStatus) error {
	return r.updateStatus(ctx, tx, id, from, to)
}

func (r *PurchaseRequestRepository) updateStatus(ctx context.Context, e sqlx.ExecerContext, id string, from, to models.PurchaseRequestStatus) error {
	const query = `UPDATE purchase_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := e.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update purchase request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check purchase request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
